package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"placement_backend/internal/placement"
	"placement_backend/internal/util"
)

// respondError 把业务错误映射为 HTTP 状态码，其余按 500 处理并记录日志
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssessmentNotFound),
		errors.Is(err, util.ErrSubmissionNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, placement.ErrAttemptLimitReached):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, placement.ErrAttemptExpired),
		errors.Is(err, util.ErrNoActiveAttempt),
		errors.Is(err, util.ErrNoQuestions):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidQuestion),
		errors.Is(err, util.ErrInvalidAssessment):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
