package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement_backend/internal/config"
	"placement_backend/internal/controller"
	"placement_backend/internal/placement"
	"placement_backend/internal/repository"
	"placement_backend/internal/service"
	"placement_backend/pkg/configwatcher"
	"placement_backend/pkg/database"
	"placement_backend/pkg/event"
	"placement_backend/pkg/logger"
	"placement_backend/pkg/monitoring"
	"placement_backend/pkg/security"
	"placement_backend/pkg/tracing"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	events          event.Publisher
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	assessment *repository.AssessmentRepository
	submission *repository.SubmissionRepository
	sessions   repository.SessionStore
}

type services struct {
	placement  *service.PlacementService
	assessment *service.AssessmentService
}

type controllers struct {
	placement  *controller.PlacementController
	assessment *controller.AssessmentController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 热加载：重建定级状态机并通知回调
func (a *App) ApplyConfig(cfg *config.Config) {
	pc, err := cfg.Placement.ControllerConfig()
	if err != nil {
		logger.Log.Error("invalid placement config, keeping previous", zap.Error(err))
		return
	}
	ctrl, err := placement.NewController(pc)
	if err != nil {
		logger.Log.Error("invalid placement config, keeping previous", zap.Error(err))
		return
	}
	a.services.placement.SetController(ctrl)
	logger.Log.Info("placement controller reloaded",
		zap.Strings("levels", levelCodes(ctrl.Ladder())),
	)

	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func levelCodes(l *placement.Ladder) []string {
	codes := make([]string, 0, l.Len())
	for _, lvl := range l.Levels() {
		codes = append(codes, string(lvl))
	}
	return codes
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		assessment: repository.NewAssessmentRepository(db),
		submission: repository.NewSubmissionRepository(db),
	}
	if rdb != nil {
		repos.sessions = repository.NewRedisSessionStore(rdb, "", cfg.Placement.SessionTTL())
	} else {
		logger.Log.Warn("redis disabled, placement sessions are kept in process memory")
		repos.sessions = repository.NewMemorySessionStore(cfg.Placement.SessionTTL())
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	pc, err := cfg.Placement.ControllerConfig()
	if err != nil {
		return nil, err
	}
	ctrl, err := placement.NewController(pc)
	if err != nil {
		return nil, err
	}

	s := &services{}
	s.placement = service.NewPlacementService(repos.assessment, repos.submission, repos.sessions, ctrl, a.events)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.submission, func() *placement.Ladder {
		return s.placement.Controller().Ladder()
	})
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		placement:  controller.NewPlacementController(s.placement),
		assessment: controller.NewAssessmentController(s.assessment),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// newApp 在已建立的连接上组装路由，rdb 为 nil 时使用内存会话
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, events event.Publisher) (*App, error) {
	if events == nil {
		events = event.NopPublisher{}
	}
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		events: events,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	return app, nil
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	// release 模式需要通过 migrate 命令显式迁移
	if cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(context.Background(), &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
	}

	var events event.Publisher = event.NopPublisher{}
	if cfg.Events.Enabled {
		pub, err := event.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		events = pub
	}

	app, err := newApp(cfg, db, rdb, events)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	return app, nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.File != "" {
		go func() {
			if err := configwatcher.Watch(ctx, a.Config.File, time.Second, a.ApplyConfig); err != nil {
				logger.Log.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 等待进行中的请求完成，最多 5 秒
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放外部连接
func (a *App) Close(ctx context.Context) {
	if closer, ok := a.events.(interface{ Close() }); ok {
		closer.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Log.Sync()
}
