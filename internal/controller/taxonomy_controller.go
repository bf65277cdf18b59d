package controller

import (
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/cache"

	"github.com/gin-gonic/gin"
)

// TaxonomyController 学科/系统/主题三级分类的只读接口与维护操作。
// 分类几乎不变，主题列表按系统温缓存，重算计数时整体失效。
type TaxonomyController struct {
	Taxonomy *repository.TaxonomyRepository
	Cache    cache.Store
	Quiz     config.QuizConfig
}

func NewTaxonomyController(taxonomy *repository.TaxonomyRepository, store cache.Store, quiz config.QuizConfig) *TaxonomyController {
	return &TaxonomyController{
		Taxonomy: taxonomy,
		Cache:    store,
		Quiz:     quiz,
	}
}

// ListSubjects godoc
// @Summary 学科列表
// @Tags 分类
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Subject} "成功"
// @Router /api/subjects [get]
func (c *TaxonomyController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.Taxonomy.ListSubjects()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// ListSystems godoc
// @Summary 系统列表（含主题）
// @Tags 分类
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.System} "成功"
// @Router /api/systems [get]
func (c *TaxonomyController) ListSystems(ctx *gin.Context) {
	systems, err := c.Taxonomy.ListSystems()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, systems)
}

// ListTopics godoc
// @Summary 某系统下的主题列表
// @Tags 分类
// @Produce  json
// @Security ApiKeyAuth
// @Param   systemId path int true "系统ID"
// @Success 200 {object} util.Response{data=[]model.Topic} "成功"
// @Router /api/systems/{systemId}/topics [get]
func (c *TaxonomyController) ListTopics(ctx *gin.Context) {
	systemID := util.MustParseUint(ctx.Param("systemId"))
	topics, err := cache.CachedQuery(ctx.Request.Context(), c.Cache, cache.SystemKey(systemID), c.Quiz.WarmTTL(), func() ([]model.Topic, error) {
		return c.Taxonomy.ListTopicsBySystem(systemID)
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// RecountQuestions godoc
// @Summary 重算分类题目计数
// @Description 重新计算各学科/系统/主题的反范式 questionCount
// @Tags 分类
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/taxonomy/recount [post]
func (c *TaxonomyController) RecountQuestions(ctx *gin.Context) {
	if err := c.Taxonomy.RecountQuestionCounts(); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.Cache.DeleteByPattern(ctx.Request.Context(), cache.PrefixSystem)
	util.Success(ctx, nil)
}
