package controller

import (
	"github.com/gin-gonic/gin"

	"placement_backend/internal/service"
	"placement_backend/internal/util"
)

type PlacementController struct {
	Service *service.PlacementService
}

func NewPlacementController(svc *service.PlacementService) *PlacementController {
	return &PlacementController{Service: svc}
}

// SubmitRequest 作答以题目 id 为键，值的形态随题型不同
type SubmitRequest struct {
	FullName string         `json:"fullName" binding:"max=200"`
	Email    string         `json:"email" binding:"omitempty,email"`
	Answers  map[string]any `json:"answers"`
}

func (r SubmitRequest) toSubmission() service.RoundSubmission {
	answers := make(map[uint]any, len(r.Answers))
	for k, v := range r.Answers {
		if id := util.MustParseUint(k); id > 0 {
			answers[id] = v
		}
	}
	return service.RoundSubmission{FullName: r.FullName, Email: r.Email, Answers: answers}
}

func actorOrAbort(ctx *gin.Context) *util.Actor {
	actor := util.GetActor(ctx)
	if actor == nil {
		util.Unauthorized(ctx)
	}
	return actor
}

// @Summary 各等级的评估
// @Tags 定级测评
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/placement/levels [get]
func (c *PlacementController) Levels(ctx *gin.Context) {
	levels, err := c.Service.Levels(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// @Summary 开始或继续自适应测评
// @Description 返回当前等级这一轮的题目，不含答案
// @Tags 定级测评
// @Produce json
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "次数已用完"
// @Failure 409 {object} util.Response "已超时，需要重新开始"
// @Router /api/placement/round [get]
func (c *PlacementController) CurrentRound(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	view, err := c.Service.CurrentRound(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 提交本轮作答
// @Tags 定级测评
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "作答"
// @Success 200 {object} util.Response
// @Router /api/placement/round [post]
func (c *PlacementController) SubmitRound(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.Service.SubmitRound(ctx.Request.Context(), actor, req.toSubmission())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, out)
}

// @Summary 放弃当前测评
// @Tags 定级测评
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/placement/session [delete]
func (c *PlacementController) Reset(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	if err := c.Service.Reset(ctx.Request.Context(), actor); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 经典模式：开始整卷作答
// @Tags 定级测评
// @Produce json
// @Param assessmentId path int true "评估ID"
// @Success 200 {object} util.Response
// @Router /api/placement/classic/{assessmentId}/start [post]
func (c *PlacementController) StartClassic(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	id := util.MustParseUint(ctx.Param("assessmentId"))
	if id == 0 {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	view, err := c.Service.StartClassic(ctx.Request.Context(), actor, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 经典模式：交卷
// @Tags 定级测评
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "作答"
// @Success 200 {object} util.Response
// @Router /api/placement/classic/submit [post]
func (c *PlacementController) SubmitClassic(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.Service.SubmitClassic(ctx.Request.Context(), actor, req.toSubmission())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, out)
}

// @Summary 测评结果
// @Description 默认返回最近一次提交，附每轮记录和错题提示
// @Tags 定级测评
// @Produce json
// @Param submissionId query int false "提交ID"
// @Success 200 {object} util.Response
// @Router /api/placement/result [get]
func (c *PlacementController) Result(ctx *gin.Context) {
	actor := actorOrAbort(ctx)
	if actor == nil {
		return
	}

	res, err := c.Service.Result(ctx.Request.Context(), actor, util.MustParseUint(ctx.Query("submissionId")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
