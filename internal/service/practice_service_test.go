package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWeakAreaStore struct {
	areas []model.Progress
}

func (f *fakeWeakAreaStore) WeakAreas(userID uint, rateBelow float64, minAttempts, limit int) ([]model.Progress, error) {
	if len(f.areas) > limit {
		return f.areas[:limit], nil
	}
	return f.areas, nil
}

func TestGetWeakAreaQuestionsSplitsAcrossAreas(t *testing.T) {
	var qs []model.Question
	// 两个弱项各20道题
	for id := uint(1); id <= 20; id++ {
		qs = append(qs, makeQuestion(id, 1, 10, model.DifficultyEasy))
	}
	for id := uint(21); id <= 40; id++ {
		qs = append(qs, makeQuestion(id, 2, 20, model.DifficultyEasy))
	}
	pool, _, _ := newPoolFixture(qs...)

	progress := &fakeWeakAreaStore{areas: []model.Progress{
		{SystemID: 1, TopicID: 10, SuccessRate: 30, TotalQuestionsAttempted: 10},
		{SystemID: 2, TopicID: 20, SuccessRate: 45, TotalQuestionsAttempted: 8},
	}}
	practice := NewPracticeService(progress, pool, cache.NewMemoryStore(), testQuizConfig())

	got, err := practice.GetWeakAreaQuestions(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	// 每个弱项贡献 ceil(10/2)=5 道
	perSystem := map[uint]int{}
	for _, q := range got {
		perSystem[*q.SystemID]++
	}
	assert.Equal(t, 5, perSystem[1])
	assert.Equal(t, 5, perSystem[2])
}

func TestGetWeakAreaQuestionsFallbackWithoutWeakAreas(t *testing.T) {
	pool, _, _ := newPoolFixture(
		makeQuestion(1, 1, 10, model.DifficultyEasy),
		makeQuestion(2, 2, 20, model.DifficultyMedium),
	)
	practice := NewPracticeService(&fakeWeakAreaStore{}, pool, cache.NewMemoryStore(), testQuizConfig())

	// 无弱项记录：退回无筛选抽样，绝不返回空集
	got, err := practice.GetWeakAreaQuestions(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetWeakAreaQuestionsFallbackWhenAreasEmpty(t *testing.T) {
	// 弱项存在但对应题池无题：第二级回退到无筛选抽样
	pool, _, _ := newPoolFixture(makeQuestion(1, 9, 90, model.DifficultyEasy))
	progress := &fakeWeakAreaStore{areas: []model.Progress{
		{SystemID: 1, TopicID: 10, SuccessRate: 30, TotalQuestionsAttempted: 10},
	}}
	practice := NewPracticeService(progress, pool, cache.NewMemoryStore(), testQuizConfig())

	got, err := practice.GetWeakAreaQuestions(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetWeakAreaQuestionsTruncatesToLimit(t *testing.T) {
	var qs []model.Question
	for id := uint(1); id <= 30; id++ {
		qs = append(qs, makeQuestion(id, 1, 10, model.DifficultyEasy))
	}
	pool, _, _ := newPoolFixture(qs...)
	progress := &fakeWeakAreaStore{areas: []model.Progress{
		{SystemID: 1, TopicID: 10, SuccessRate: 30, TotalQuestionsAttempted: 10},
	}}
	practice := NewPracticeService(progress, pool, cache.NewMemoryStore(), testQuizConfig())

	got, err := practice.GetWeakAreaQuestions(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Len(t, got, 7)
}
