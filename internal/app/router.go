package app

import (
	"github.com/gin-gonic/gin"

	"placement_backend/internal/config"
	"placement_backend/internal/middleware"
	"placement_backend/internal/model"
	"placement_backend/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 定级测试：登录可选，匿名用户由 cookie 识别
	a.registerPlacementRoutes(router, c, cfg)

	// 3. 题库管理
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPlacementRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	placement := router.Group("/api/placement")
	placement.Use(middleware.TryAuthMiddleware(cfg.JWT.Secret), middleware.Identity(cfg.Placement.CookieSecure))
	{
		placement.GET("/levels", c.placement.Levels)
		placement.GET("/round", c.placement.CurrentRound)
		placement.POST("/round", c.placement.SubmitRound)
		placement.DELETE("/session", c.placement.Reset)
		placement.GET("/result", c.placement.Result)

		placement.POST("/classic/:assessmentId/start", c.placement.StartClassic)
		placement.POST("/classic/submit", c.placement.SubmitClassic)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Teacher))
	{
		admin.POST("/assessments", c.assessment.CreateAssessment)
		admin.GET("/assessments", c.assessment.ListAssessments)
		admin.GET("/assessments/:id", c.assessment.GetAssessment)
		admin.PUT("/assessments/:id", c.assessment.UpdateAssessment)

		admin.POST("/questions", c.assessment.CreateQuestion)
		admin.GET("/questions", c.assessment.ListQuestions)
		admin.GET("/questions/:id", c.assessment.GetQuestion)
		admin.PUT("/questions/:id", c.assessment.UpdateQuestion)
		admin.DELETE("/questions/:id", c.assessment.DeleteQuestion)

		admin.GET("/submissions", c.assessment.ListSubmissions)
	}
}
