package service

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/pkg/cache"
)

const leaderboardSize = 20

// LeaderboardService 排行榜快照，热缓存（300s），过期重算
type LeaderboardService struct {
	Progress *repository.ProgressRepository
	Cache    cache.Store
	Quiz     config.QuizConfig
}

func NewLeaderboardService(progress *repository.ProgressRepository, store cache.Store, quiz config.QuizConfig) *LeaderboardService {
	return &LeaderboardService{
		Progress: progress,
		Cache:    store,
		Quiz:     quiz,
	}
}

func (s *LeaderboardService) Top(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return cache.CachedQuery(ctx, s.Cache, cache.LeaderboardKey("global"), s.Quiz.HotTTL(), func() ([]model.LeaderboardEntry, error) {
		return s.Progress.TopPerformers(leaderboardSize)
	})
}
