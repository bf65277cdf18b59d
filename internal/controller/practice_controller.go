package controller

import (
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PracticeController 练习出题接口：弱项练习与自适应难度
type PracticeController struct {
	PracticeService *service.PracticeService
	AdaptiveService *service.AdaptiveService
}

func NewPracticeController(practiceService *service.PracticeService, adaptiveService *service.AdaptiveService) *PracticeController {
	return &PracticeController{
		PracticeService: practiceService,
		AdaptiveService: adaptiveService,
	}
}

// GetWeakAreaQuestions godoc
// @Summary 弱项练习出题
// @Description 向学习者薄弱的 (系统, 主题) 倾斜出题；无弱项记录时退回全库抽样
// @Tags 练习
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "题目数量"
// @Success 200 {object} util.Response{data=[]model.Question} "成功"
// @Router /api/practice/weak-areas [get]
func (c *PracticeController) GetWeakAreaQuestions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	questions, err := c.PracticeService.GetWeakAreaQuestions(ctx.Request.Context(), claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// GetAdaptiveQuestions godoc
// @Summary 自适应难度出题
// @Description 按学习者在该系统的滚动成功率选定难度后出题
// @Tags 练习
// @Produce  json
// @Security ApiKeyAuth
// @Param   systemId path int true "系统ID"
// @Param   limit query int false "题目数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "系统ID无效"
// @Router /api/practice/adaptive/{systemId} [get]
func (c *PracticeController) GetAdaptiveQuestions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	systemID := util.MustParseUint(ctx.Param("systemId"))
	if systemID == 0 {
		util.BadRequest(ctx, "invalid system id")
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	if limit <= 0 {
		limit = 10
	}

	rate, err := c.AdaptiveService.SuccessRateForSystem(claims.UserID, systemID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	questions, err := c.AdaptiveService.GetAdaptiveQuestions(ctx.Request.Context(), claims.UserID, systemID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"successRate": rate,
		"difficulty":  c.AdaptiveService.PickDifficulty(rate),
		"questions":   questions,
	})
}
