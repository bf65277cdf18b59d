package controller

import (
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/cache"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Cache cache.Store
}

func NewHealthController(db *gorm.DB, store cache.Store) *HealthController {
	return &HealthController{DB: db, Cache: store}
}

// @Summary 健康检查
// @Description 检查服务状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	// 缓存不可用服务照常运行（fail-open），健康检查只报告状态
	cacheStatus := "up"
	if err := c.Cache.Ping(ctx.Request.Context()); err != nil {
		cacheStatus = "down"
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"database": "up",
			"cache":    cacheStatus,
		},
	})
}
