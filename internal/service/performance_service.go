package service

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/pkg/cache"
)

// PerformanceService 学习者表现快照（按系统聚合），user:perf: 热缓存
type PerformanceService struct {
	Progress *repository.ProgressRepository
	Cache    cache.Store
	Quiz     config.QuizConfig
}

func NewPerformanceService(progress *repository.ProgressRepository, store cache.Store, quiz config.QuizConfig) *PerformanceService {
	return &PerformanceService{
		Progress: progress,
		Cache:    store,
		Quiz:     quiz,
	}
}

func (s *PerformanceService) Snapshot(ctx context.Context, userID uint) ([]model.SystemPerformance, error) {
	return cache.CachedQuery(ctx, s.Cache, cache.UserPerfKey(userID), s.Quiz.HotTTL(), func() ([]model.SystemPerformance, error) {
		rows, err := s.Progress.ListByUser(userID)
		if err != nil {
			return nil, err
		}

		type agg struct {
			weighted  float64
			attempted int
		}
		bySystem := make(map[uint]*agg)
		order := make([]uint, 0)
		for _, row := range rows {
			a, ok := bySystem[row.SystemID]
			if !ok {
				a = &agg{}
				bySystem[row.SystemID] = a
				order = append(order, row.SystemID)
			}
			a.weighted += row.SuccessRate * float64(row.TotalQuestionsAttempted)
			a.attempted += row.TotalQuestionsAttempted
		}

		result := make([]model.SystemPerformance, 0, len(order))
		for _, systemID := range order {
			a := bySystem[systemID]
			perf := model.SystemPerformance{SystemID: systemID, Attempted: a.attempted}
			if a.attempted > 0 {
				perf.SuccessRate = a.weighted / float64(a.attempted)
			}
			result = append(result, perf)
		}
		return result, nil
	})
}
