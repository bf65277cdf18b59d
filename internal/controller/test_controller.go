package controller

import (
	"errors"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TestController 测验生命周期接口：组卷、作答、暂停/恢复、会话恢复
type TestController struct {
	TestService     *service.TestService
	RecoveryService *service.RecoveryService
}

func NewTestController(testService *service.TestService, recoveryService *service.RecoveryService) *TestController {
	return &TestController{
		TestService:     testService,
		RecoveryService: recoveryService,
	}
}

// CreateTest godoc
// @Summary 创建测验
// @Description 按筛选条件（或自适应难度）组卷，返回固定顺序的题目集
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateTestRequest true "组卷条件"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "题库中无可用题目"
// @Router /api/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Difficulty != nil && !req.Difficulty.Valid() {
		util.BadRequest(ctx, util.ErrInvalidDifficulty.Error())
		return
	}

	test, questions, err := c.TestService.CreateTest(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.Error(ctx, 404, "no questions available")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{
		"test":      test,
		"questions": questions,
	})
}

// GetTestQuestions godoc
// @Summary 获取测验题目
// @Description 按组卷时固定的顺序返回测验题目
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.Question} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/tests/{id}/questions [get]
func (c *TestController) GetTestQuestions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	questions, err := c.TestService.GetTestQuestions(ctx.Request.Context(), claims.UserID, testID)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, questions)
}

// SubmitAnswer godoc
// @Summary 提交作答
// @Description 记录学习者作答并同步返回判题结果；题目统计异步更新
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.SubmitAnswerRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmitAnswerResult} "成功"
// @Failure 400 {object} util.Response "选项与题目不匹配"
// @Failure 404 {object} util.Response "测验或题目不存在"
// @Failure 409 {object} util.Response "测验已交卷"
// @Router /api/tests/{id}/answers [post]
func (c *TestController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	var req service.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.TestService.SubmitAnswer(ctx.Request.Context(), claims.UserID, testID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrOptionMismatch):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrTestSubmitted):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// PauseRequest 暂停/断线上报的载荷
type PauseRequest struct {
	Reason string `json:"reason"`
}

// PauseTest godoc
// @Summary 暂停测验
// @Description 记录暂停事件及原因
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body PauseRequest false "暂停原因"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/tests/{id}/pause [post]
func (c *TestController) PauseTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	var req PauseRequest
	ctx.ShouldBindJSON(&req)

	if err := c.TestService.PauseTest(ctx.Request.Context(), claims.UserID, testID, req.Reason); err != nil {
		c.writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ResumeTest godoc
// @Summary 恢复测验
// @Description 恢复作答；空闲超限时自动开启新会话
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/tests/{id}/resume [post]
func (c *TestController) ResumeTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	if err := c.TestService.ResumeTest(ctx.Request.Context(), claims.UserID, testID); err != nil {
		c.writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReportDisconnect godoc
// @Summary 上报断线
// @Description 客户端重连后补报断线事件
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body PauseRequest false "断线原因"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/tests/{id}/disconnect [post]
func (c *TestController) ReportDisconnect(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	var req PauseRequest
	ctx.ShouldBindJSON(&req)

	if err := c.TestService.ReportDisconnect(ctx.Request.Context(), claims.UserID, testID, req.Reason); err != nil {
		c.writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// EndTest godoc
// @Summary 交卷
// @Description 结束测验，关闭当前会话并清除进行中指针
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/tests/{id}/end [post]
func (c *TestController) EndTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	if err := c.TestService.EndTest(ctx.Request.Context(), claims.UserID, testID); err != nil {
		c.writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetActiveTest godoc
// @Summary 获取进行中的测验
// @Description 读取学习者当前进行中的测验（仅缓存指针，过期返回404）
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Test} "成功"
// @Failure 404 {object} util.Response "无进行中测验"
// @Router /api/tests/active [get]
func (c *TestController) GetActiveTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	test, err := c.TestService.GetActiveTest(ctx.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, test)
}

// GetRecovery godoc
// @Summary 获取会话恢复时间线
// @Description 返回测验的全部会话摘要与按时间排序的事件流
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.TestRecovery} "成功"
// @Failure 404 {object} util.Response "测验不存在或不属于当前用户"
// @Router /api/tests/{id}/recovery [get]
func (c *TestController) GetRecovery(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	recovery, err := c.RecoveryService.GetRecoveryTimeline(testID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, recovery)
}

func (c *TestController) writeSessionError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrNoActiveSession):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
