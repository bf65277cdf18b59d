package service

import (
	"context"
	"encoding/json"
	"errors"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/logger"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testStore interface {
	CreateWithQuestions(test *model.Test, questionIDs []uint) error
	FindForUser(testID, userID uint) (*model.Test, error)
	LatestUnsubmitted(userID uint) (*model.Test, error)
	OrderedQuestionIDs(testID uint) ([]uint, error)
	MarkSubmitted(testID uint) error
	SaveAnswer(answer *model.TestAnswer) error
}

type sessionStore interface {
	Create(session *model.TestSession) error
	LatestByTest(testID uint) (*model.TestSession, error)
	AppendEvent(event *model.StatusEvent) error
	TouchActivity(sessionID uint, answered bool) error
	MarkPaused(sessionID uint, at time.Time) error
	MarkResumed(sessionID uint, at time.Time) error
	MarkEnded(sessionID uint, at time.Time) error
	IncrementDisconnect(sessionID uint) error
}

// answerReader 判题所需的题目读取面
type answerReader interface {
	FindByID(id uint) (*model.Question, error)
	OptionBelongsToQuestion(questionID, optionID uint) (*model.AnswerOption, error)
}

type answerRecorder interface {
	RecordAnswer(userID, systemID, topicID uint, isCorrect bool) error
}

// CreateTestRequest 组卷请求
type CreateTestRequest struct {
	Mode       model.TestMode    `json:"mode"`
	SystemID   *uint             `json:"systemId,omitempty"`
	TopicID    *uint             `json:"topicId,omitempty"`
	SubjectID  *uint             `json:"subjectId,omitempty"`
	Difficulty *model.Difficulty `json:"difficulty,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Adaptive   bool              `json:"adaptive,omitempty"`
}

// SubmitAnswerRequest 作答提交
type SubmitAnswerRequest struct {
	QuestionID    uint `json:"questionId" binding:"required"`
	OptionID      uint `json:"optionId" binding:"required"`
	TimeSpent     int  `json:"timeSpent"`
	QuestionIndex int  `json:"questionIndex"`
}

// SubmitAnswerResult 同步返回给学习者的判题结果
type SubmitAnswerResult struct {
	IsCorrect       bool   `json:"isCorrect"`
	CorrectOptionID uint   `json:"correctOptionId"`
	Explanation     string `json:"explanation"`
}

// TestService 测验生命周期：组卷、作答、暂停/恢复、会话跟踪。
// 指标更新只入队，由 MetricsUpdater 异步消费。
type TestService struct {
	Tests     testStore
	Sessions  sessionStore
	Questions answerReader
	Progress  answerRecorder
	Pool      *QuestionPoolService
	Adaptive  *AdaptiveService
	Updater   *MetricsUpdater
	Cache     cache.Store
	Quiz      config.QuizConfig
}

func NewTestService(
	tests testStore,
	sessions sessionStore,
	questions answerReader,
	progress answerRecorder,
	pool *QuestionPoolService,
	adaptive *AdaptiveService,
	updater *MetricsUpdater,
	store cache.Store,
	quiz config.QuizConfig,
) *TestService {
	return &TestService{
		Tests:     tests,
		Sessions:  sessions,
		Questions: questions,
		Progress:  progress,
		Pool:      pool,
		Adaptive:  adaptive,
		Updater:   updater,
		Cache:     store,
		Quiz:      quiz,
	}
}

// CreateTest 组卷并固定题目顺序。筛选条件下零命中时逐级放宽
// （去难度→去主题→全库），只要库里有题就不给学习者空卷。
func (s *TestService) CreateTest(ctx context.Context, userID uint, req CreateTestRequest) (*model.Test, []model.Question, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.Quiz.DefaultLimit
	}

	var questions []model.Question
	var err error

	if req.Adaptive && req.SystemID != nil {
		questions, err = s.Adaptive.GetAdaptiveQuestions(ctx, userID, *req.SystemID, limit)
	} else {
		questions, err = s.Pool.GetQuestionsForTest(ctx, model.QuestionFilters{
			SystemID:   req.SystemID,
			TopicID:    req.TopicID,
			SubjectID:  req.SubjectID,
			Difficulty: req.Difficulty,
			Limit:      limit,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	if len(questions) == 0 {
		questions, err = s.widenSearch(ctx, req, limit)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(questions) == 0 {
		return nil, nil, util.ErrQuestionNotFound
	}

	mode := req.Mode
	if mode == "" {
		mode = model.TestModePractice
	}

	test := &model.Test{
		UserID:    userID,
		Mode:      mode,
		SystemID:  req.SystemID,
		TopicID:   req.TopicID,
		SubjectID: req.SubjectID,
	}
	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	if err := s.Tests.CreateWithQuestions(test, questionIDs); err != nil {
		return nil, nil, err
	}

	// 物化题目集与进行中测验指针
	if raw, err := json.Marshal(questionIDs); err == nil {
		s.Cache.Set(ctx, cache.TestQuestionsKey(test.ID), string(raw), s.Quiz.WarmTTL())
	}
	s.Cache.Set(ctx, cache.UserActiveTestKey(userID), strconv.FormatUint(uint64(test.ID), 10), s.Quiz.HotTTL())

	session := &model.TestSession{
		TestID:         test.ID,
		UserID:         userID,
		SessionNumber:  1,
		StartedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	if err := s.Sessions.Create(session); err != nil {
		logger.Log.Error("create test: session open failed", zap.Uint("testId", test.ID), zap.Error(err))
	}

	return test, questions, nil
}

// widenSearch 零命中时的逐级放宽：只有全库无题才算硬失败
func (s *TestService) widenSearch(ctx context.Context, req CreateTestRequest, limit int) ([]model.Question, error) {
	fallbacks := []model.QuestionFilters{
		{SystemID: req.SystemID, TopicID: req.TopicID, SubjectID: req.SubjectID, Limit: limit},
		{SystemID: req.SystemID, SubjectID: req.SubjectID, Limit: limit},
		{Limit: limit},
	}
	for _, filters := range fallbacks {
		questions, err := s.Pool.GetQuestionsForTest(ctx, filters)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return questions, nil
		}
	}
	return nil, nil
}

// GetTestQuestions 取测验的有序题目（物化集缓存旁路）
func (s *TestService) GetTestQuestions(ctx context.Context, userID, testID uint) ([]model.Question, error) {
	if _, err := s.findOwnedTest(testID, userID); err != nil {
		return nil, err
	}

	ids, err := cache.CachedQuery(ctx, s.Cache, cache.TestQuestionsKey(testID), s.Quiz.WarmTTL(), func() ([]uint, error) {
		return s.Tests.OrderedQuestionIDs(testID)
	})
	if err != nil {
		return nil, err
	}

	questions, err := s.Pool.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return sortByIDList(questions, ids), nil
}

// SubmitAnswer 记录作答并同步判题；指标更新在响应后异步完成。
func (s *TestService) SubmitAnswer(ctx context.Context, userID, testID uint, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	test, err := s.findOwnedTest(testID, userID)
	if err != nil {
		return nil, err
	}
	if test.Submitted {
		return nil, util.ErrTestSubmitted
	}

	question, err := s.Questions.FindByID(req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	option, err := s.Questions.OptionBelongsToQuestion(req.QuestionID, req.OptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrOptionMismatch
		}
		return nil, err
	}

	answer := &model.TestAnswer{
		TestID:     testID,
		UserID:     userID,
		QuestionID: req.QuestionID,
		OptionID:   req.OptionID,
		IsCorrect:  option.IsCorrect,
		TimeSpent:  req.TimeSpent,
	}
	if err := s.Tests.SaveAnswer(answer); err != nil {
		return nil, err
	}

	// 会话跟踪与进度更新失败不影响作答结果
	if session, err := s.ensureSession(test); err == nil {
		s.Sessions.AppendEvent(&model.StatusEvent{
			SessionID:     session.ID,
			EventType:     model.EventAnswered,
			QuestionIndex: req.QuestionIndex,
			AttemptNumber: session.SessionNumber,
		})
		s.Sessions.TouchActivity(session.ID, true)
	} else {
		logger.Log.Warn("submit answer: session tracking failed", zap.Uint("testId", testID), zap.Error(err))
	}

	if question.SystemID != nil && question.TopicID != nil {
		if err := s.Progress.RecordAnswer(userID, *question.SystemID, *question.TopicID, option.IsCorrect); err != nil {
			logger.Log.Warn("submit answer: progress update failed", zap.Uint("userId", userID), zap.Error(err))
		}
		s.Cache.Delete(ctx, cache.UserPerfKey(userID), cache.UserProgressKey(userID))
	}

	result := &SubmitAnswerResult{
		IsCorrect:   option.IsCorrect,
		Explanation: question.Explanation,
	}
	for _, o := range question.Options {
		if o.IsCorrect {
			result.CorrectOptionID = o.ID
			break
		}
	}

	// 即发即忘：有界队列，绝不阻塞提交路径
	s.Updater.Enqueue(MetricsJob{
		QuestionID: req.QuestionID,
		IsCorrect:  option.IsCorrect,
		TimeSpent:  req.TimeSpent,
	})

	return result, nil
}

// PauseTest 记录暂停事件与原因
func (s *TestService) PauseTest(ctx context.Context, userID, testID uint, reason string) error {
	test, err := s.findOwnedTest(testID, userID)
	if err != nil {
		return err
	}

	session, err := s.Sessions.LatestByTest(test.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNoActiveSession
		}
		return err
	}

	now := time.Now()
	if err := s.Sessions.MarkPaused(session.ID, now); err != nil {
		return err
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return s.Sessions.AppendEvent(&model.StatusEvent{
		SessionID:     session.ID,
		EventType:     model.EventPaused,
		Reason:        reasonPtr,
		AttemptNumber: session.SessionNumber,
	})
}

// ResumeTest 恢复作答。空闲超限时开启新会话（上一会话隐式关闭）。
func (s *TestService) ResumeTest(ctx context.Context, userID, testID uint) error {
	test, err := s.findOwnedTest(testID, userID)
	if err != nil {
		return err
	}

	session, err := s.ensureSession(test)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.Sessions.MarkResumed(session.ID, now); err != nil {
		return err
	}
	s.Cache.Set(ctx, cache.UserActiveTestKey(userID), strconv.FormatUint(uint64(testID), 10), s.Quiz.HotTTL())
	return s.Sessions.AppendEvent(&model.StatusEvent{
		SessionID:     session.ID,
		EventType:     model.EventResumed,
		AttemptNumber: session.SessionNumber,
	})
}

// ReportDisconnect 记录断线
func (s *TestService) ReportDisconnect(ctx context.Context, userID, testID uint, reason string) error {
	test, err := s.findOwnedTest(testID, userID)
	if err != nil {
		return err
	}

	session, err := s.Sessions.LatestByTest(test.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNoActiveSession
		}
		return err
	}

	if err := s.Sessions.IncrementDisconnect(session.ID); err != nil {
		return err
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return s.Sessions.AppendEvent(&model.StatusEvent{
		SessionID:     session.ID,
		EventType:     model.EventDisconnected,
		Reason:        reasonPtr,
		AttemptNumber: session.SessionNumber,
	})
}

// EndTest 交卷：关会话、清进行中指针、失效物化题目集
func (s *TestService) EndTest(ctx context.Context, userID, testID uint) error {
	test, err := s.findOwnedTest(testID, userID)
	if err != nil {
		return err
	}

	if err := s.Tests.MarkSubmitted(test.ID); err != nil {
		return err
	}
	if session, err := s.Sessions.LatestByTest(test.ID); err == nil && session.EndedAt == nil {
		s.Sessions.MarkEnded(session.ID, time.Now())
	}

	s.Cache.Delete(ctx, cache.UserActiveTestKey(userID), cache.TestQuestionsKey(testID))
	return nil
}

// GetActiveTest 读取进行中测验。指针缓存只是加速入口：
// 未命中、损坏或指向已交卷测验时回源查最近一份未交卷测验并回填指针。
func (s *TestService) GetActiveTest(ctx context.Context, userID uint) (*model.Test, error) {
	if raw, ok := s.Cache.Get(ctx, cache.UserActiveTestKey(userID)); ok {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			if test, err := s.findOwnedTest(uint(id), userID); err == nil && !test.Submitted {
				return test, nil
			}
		}
		s.Cache.Delete(ctx, cache.UserActiveTestKey(userID))
	}

	test, err := s.Tests.LatestUnsubmitted(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	s.Cache.Set(ctx, cache.UserActiveTestKey(userID), strconv.FormatUint(uint64(test.ID), 10), s.Quiz.HotTTL())
	return test, nil
}

func (s *TestService) findOwnedTest(testID, userID uint) (*model.Test, error) {
	test, err := s.Tests.FindForUser(testID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}

// ensureSession 取当前会话；超过空闲阈值则关旧开新，编号+1
func (s *TestService) ensureSession(test *model.Test) (*model.TestSession, error) {
	latest, err := s.Sessions.LatestByTest(test.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.openSession(test, 1)
	}
	if err != nil {
		return nil, err
	}

	if latest.EndedAt == nil && time.Since(latest.LastActivityAt) <= s.Quiz.SessionIdleGap() {
		return latest, nil
	}

	if latest.EndedAt == nil {
		// 上一会话隐式关闭，结束时间取其最后活动时刻
		s.Sessions.MarkEnded(latest.ID, latest.LastActivityAt)
	}
	return s.openSession(test, latest.SessionNumber+1)
}

func (s *TestService) openSession(test *model.Test, number int) (*model.TestSession, error) {
	session := &model.TestSession{
		TestID:         test.ID,
		UserID:         test.UserID,
		SessionNumber:  number,
		StartedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	if err := s.Sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}
