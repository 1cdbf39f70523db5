package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"placement_backend/pkg/logger"
)

// Response 所有接口共用的外层结构 {code, message, data}
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Code: status, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) { respond(c, http.StatusOK, "success", data) }

func Created(c *gin.Context, data interface{}) { respond(c, http.StatusCreated, "created", data) }

func Page(c *gin.Context, list interface{}, total int64, page, limit int) {
	Success(c, PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

func Error(c *gin.Context, status int, message string) { respond(c, status, message, nil) }

func BadRequest(c *gin.Context, message string) { Error(c, http.StatusBadRequest, message) }

func Unauthorized(c *gin.Context) { Error(c, http.StatusUnauthorized, "Unauthorized") }

func Forbidden(c *gin.Context) { Error(c, http.StatusForbidden, "Forbidden") }

func Conflict(c *gin.Context, message string) { Error(c, http.StatusConflict, message) }

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

// LogInternalError 错误细节只写日志，不返回给客户端
func LogInternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	logger.Log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}
