package service

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/logger"

	"go.uber.org/zap"
)

type weakAreaStore interface {
	WeakAreas(userID uint, rateBelow float64, minAttempts, limit int) ([]model.Progress, error)
}

// PracticeService 弱项练习：向学习者成绩薄弱的 (system, topic) 倾斜出题。
type PracticeService struct {
	Progress weakAreaStore
	Pool     *QuestionPoolService
	Cache    cache.Store
	Quiz     config.QuizConfig
}

func NewPracticeService(progress weakAreaStore, pool *QuestionPoolService, store cache.Store, quiz config.QuizConfig) *PracticeService {
	return &PracticeService{
		Progress: progress,
		Pool:     pool,
		Cache:    store,
		Quiz:     quiz,
	}
}

// GetWeakAreaQuestions 按弱项组卷。最多取5个弱项（成功率<60 且样本>=5），
// 每项取 ceil(limit/项数) 道，拼接后截断到 limit。
// 没有合格弱项时退回无筛选题池——练习集绝不因无弱项记录而为空。
func (s *PracticeService) GetWeakAreaQuestions(ctx context.Context, userID uint, limit int) ([]model.Question, error) {
	if limit <= 0 {
		limit = s.Quiz.DefaultLimit
	}

	// 弱项列表随作答推进，温缓存；提交作答时按用户失效
	areas, err := cache.CachedQuery(ctx, s.Cache, cache.UserProgressKey(userID), s.Quiz.WarmTTL(), func() ([]model.Progress, error) {
		return s.Progress.WeakAreas(userID, s.Quiz.WeakRateBelow, s.Quiz.WeakMinAttempts, s.Quiz.WeakMaxAreas)
	})
	if err != nil {
		return nil, err
	}

	if len(areas) == 0 {
		logger.Log.Debug("no weak areas, falling back to unfiltered pool", zap.Uint("userId", userID))
		return s.Pool.GetQuestionsForTest(ctx, model.QuestionFilters{Limit: limit})
	}

	perArea := (limit + len(areas) - 1) / len(areas)

	questions := make([]model.Question, 0, limit)
	for _, area := range areas {
		systemID, topicID := area.SystemID, area.TopicID
		batch, err := s.Pool.GetQuestionsForTest(ctx, model.QuestionFilters{
			SystemID: &systemID,
			TopicID:  &topicID,
			Limit:    perArea,
		})
		if err != nil {
			return nil, err
		}
		questions = append(questions, batch...)
		if len(questions) >= limit {
			break
		}
	}

	if len(questions) > limit {
		questions = questions[:limit]
	}

	// 弱项里凑不满也不能给空集
	if len(questions) == 0 {
		return s.Pool.GetQuestionsForTest(ctx, model.QuestionFilters{Limit: limit})
	}
	return questions, nil
}
