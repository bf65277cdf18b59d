package service

import (
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuizConfig() config.QuizConfig {
	return config.QuizConfig{
		AdaptiveEasyBelow:   40,
		AdaptiveMediumBelow: 70,
		DefaultLimit:        50,
		OverfetchFactor:     2,
		HotTTLSeconds:       300,
		WarmTTLSeconds:      3600,
		ColdTTLSeconds:      86400,
		WeakRateBelow:       60,
		WeakMinAttempts:     5,
		WeakMaxAreas:        5,
		SessionIdleMinutes:  30,
		MetricsQueueSize:    16,
	}
}

type fakeProgressStore struct {
	rows []model.Progress
	err  error
}

func (f *fakeProgressStore) ListByUserSystem(userID, systemID uint) ([]model.Progress, error) {
	return f.rows, f.err
}

func TestPickDifficultyBuckets(t *testing.T) {
	s := NewAdaptiveService(&fakeProgressStore{}, nil, testQuizConfig())

	cases := []struct {
		rate float64
		want model.Difficulty
	}{
		{0, model.DifficultyEasy},
		{39, model.DifficultyEasy},
		{39.9, model.DifficultyEasy},
		{40, model.DifficultyMedium}, // 边界值归入上一档
		{69, model.DifficultyMedium},
		{70, model.DifficultyHard},
		{100, model.DifficultyHard},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, s.PickDifficulty(tc.rate), "rate=%v", tc.rate)
	}
}

func TestSuccessRateForSystemWeighted(t *testing.T) {
	progress := &fakeProgressStore{rows: []model.Progress{
		{SuccessRate: 80, TotalQuestionsAttempted: 10},
		{SuccessRate: 20, TotalQuestionsAttempted: 30},
	}}
	s := NewAdaptiveService(progress, nil, testQuizConfig())

	rate, err := s.SuccessRateForSystem(1, 1)
	require.NoError(t, err)
	// (80*10 + 20*30) / 40 = 35
	assert.InDelta(t, 35, rate, 0.001)
}

func TestSuccessRateForSystemNoHistory(t *testing.T) {
	s := NewAdaptiveService(&fakeProgressStore{}, nil, testQuizConfig())

	rate, err := s.SuccessRateForSystem(1, 1)
	require.NoError(t, err)
	assert.Equal(t, defaultSuccessRate, rate)
	// 默认值落在 MEDIUM 档
	assert.Equal(t, model.DifficultyMedium, s.PickDifficulty(rate))
}

func TestUpdateQuizConfigHotReload(t *testing.T) {
	s := NewAdaptiveService(&fakeProgressStore{}, nil, testQuizConfig())
	assert.Equal(t, model.DifficultyMedium, s.PickDifficulty(50))

	quiz := testQuizConfig()
	quiz.AdaptiveEasyBelow = 55
	s.UpdateQuizConfig(quiz)

	assert.Equal(t, model.DifficultyEasy, s.PickDifficulty(50))
}
