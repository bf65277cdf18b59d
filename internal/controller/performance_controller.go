package controller

import (
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PerformanceController 学习者表现快照与排行榜
type PerformanceController struct {
	PerformanceService *service.PerformanceService
	LeaderboardService *service.LeaderboardService
}

func NewPerformanceController(performanceService *service.PerformanceService, leaderboardService *service.LeaderboardService) *PerformanceController {
	return &PerformanceController{
		PerformanceService: performanceService,
		LeaderboardService: leaderboardService,
	}
}

// GetPerformance godoc
// @Summary 表现快照
// @Description 当前学习者按系统聚合的成功率快照（热缓存）
// @Tags 表现
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.SystemPerformance} "成功"
// @Router /api/performance [get]
func (c *PerformanceController) GetPerformance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	snapshot, err := c.PerformanceService.Snapshot(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, snapshot)
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Description 全局加权成功率前20名（热缓存，最多延迟5分钟）
// @Tags 表现
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.LeaderboardEntry} "成功"
// @Router /api/leaderboard [get]
func (c *PerformanceController) GetLeaderboard(ctx *gin.Context) {
	entries, err := c.LeaderboardService.Top(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
