package service

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/logger"
	"sync"

	"go.uber.org/zap"
)

type progressStore interface {
	ListByUserSystem(userID, systemID uint) ([]model.Progress, error)
}

// 无历史记录时的中位默认成功率（无偏）
const defaultSuccessRate = 50.0

// AdaptiveService 按学习者的滚动表现选定目标难度，再委托题池服务取题。
// 不直接访问持久层题目数据。
type AdaptiveService struct {
	Progress progressStore
	Pool     *QuestionPoolService

	mu   sync.RWMutex
	quiz config.QuizConfig
}

func NewAdaptiveService(progress progressStore, pool *QuestionPoolService, quiz config.QuizConfig) *AdaptiveService {
	return &AdaptiveService{
		Progress: progress,
		Pool:     pool,
		quiz:     quiz,
	}
}

// UpdateQuizConfig 配置热更新入口（configwatcher 回调）
func (s *AdaptiveService) UpdateQuizConfig(quiz config.QuizConfig) {
	s.mu.Lock()
	s.quiz = quiz
	s.mu.Unlock()
	logger.Log.Info("adaptive thresholds reloaded",
		zap.Float64("easyBelow", quiz.AdaptiveEasyBelow),
		zap.Float64("mediumBelow", quiz.AdaptiveMediumBelow))
}

// PickDifficulty 难度分桶（左闭右开）：<40 EASY，40–70 MEDIUM，>=70 HARD。
// 阈值刻意偏向先巩固弱项再升难度，属配置常量。
func (s *AdaptiveService) PickDifficulty(successRate float64) model.Difficulty {
	s.mu.RLock()
	easyBelow, mediumBelow := s.quiz.AdaptiveEasyBelow, s.quiz.AdaptiveMediumBelow
	s.mu.RUnlock()

	switch {
	case successRate < easyBelow:
		return model.DifficultyEasy
	case successRate < mediumBelow:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

// SuccessRateForSystem 学习者在某系统下的加权滚动成功率；无记录返回默认值50
func (s *AdaptiveService) SuccessRateForSystem(userID, systemID uint) (float64, error) {
	rows, err := s.Progress.ListByUserSystem(userID, systemID)
	if err != nil {
		return 0, err
	}

	totalAttempted := 0
	weighted := 0.0
	for _, row := range rows {
		totalAttempted += row.TotalQuestionsAttempted
		weighted += row.SuccessRate * float64(row.TotalQuestionsAttempted)
	}
	if totalAttempted == 0 {
		return defaultSuccessRate, nil
	}
	return weighted / float64(totalAttempted), nil
}

// GetAdaptiveQuestions 练习模式取题：先定难度，再委托题池
func (s *AdaptiveService) GetAdaptiveQuestions(ctx context.Context, userID, systemID uint, count int) ([]model.Question, error) {
	rate, err := s.SuccessRateForSystem(userID, systemID)
	if err != nil {
		return nil, err
	}

	difficulty := s.PickDifficulty(rate)
	logger.Log.Debug("adaptive difficulty selected",
		zap.Uint("userId", userID),
		zap.Uint("systemId", systemID),
		zap.Float64("successRate", rate),
		zap.String("difficulty", string(difficulty)))

	return s.Pool.GetQuestionsForTest(ctx, model.QuestionFilters{
		SystemID:   &systemID,
		Difficulty: &difficulty,
		Limit:      count,
	})
}
