package controller

import (
	"errors"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionController 题库管理接口（录入、导入、配图）与单题查询
type QuestionController struct {
	QuestionService *service.QuestionService
	PoolService     *service.QuestionPoolService
}

func NewQuestionController(questionService *service.QuestionService, poolService *service.QuestionPoolService) *QuestionController {
	return &QuestionController{
		QuestionService: questionService,
		PoolService:     poolService,
	}
}

// GetQuestion godoc
// @Summary 获取单题
// @Description 按ID获取题目（含选项），走温缓存
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response{data=model.Question} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/questions/{id} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	question, err := c.QuestionService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, question)
}

// CreateQuestion godoc
// @Summary 录入题目
// @Description 管理员录入单道题目（至少2个选项且至少1个正确）
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuestionInput true "题目内容"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "校验失败"
// @Router /api/admin/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	var input service.QuestionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.Create(input)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, gin.H{"id": question.ID})
}

// ImportQuestions godoc
// @Summary 批量导入题目
// @Description 坏记录跳过并计数，不中断整批；导入后重算分类计数
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body []service.QuestionInput true "题目列表"
// @Success 200 {object} util.Response{data=service.ImportReport} "导入报告"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/questions/import [post]
func (c *QuestionController) ImportQuestions(ctx *gin.Context) {
	var inputs []service.QuestionInput
	if err := ctx.ShouldBindJSON(&inputs); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.QuestionService.Import(ctx.Request.Context(), inputs)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// UploadQuestionImage godoc
// @Summary 上传题目配图
// @Description 上传配图到对象存储并更新题目，随后失效该题缓存
// @Tags 题库
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Param   file formData file true "图片文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件缺失"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/admin/questions/{id}/image [post]
func (c *QuestionController) UploadQuestionImage(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.QuestionService.UploadImage(ctx.Request.Context(), id, file)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// RegeneratePools godoc
// @Summary 重新生成题池
// @Description 为每个 (系统, 主题, 难度) 组合预生成打乱的题号列表，幂等
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "生成的题池数"
// @Router /api/admin/questions/pools/regenerate [post]
func (c *QuestionController) RegeneratePools(ctx *gin.Context) {
	generated, err := c.PoolService.GeneratePools(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"pools": generated})
}
