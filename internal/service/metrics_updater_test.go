package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetricsStore struct {
	mu        sync.Mutex
	questions map[uint]*model.Question
	updates   int
}

func newFakeMetricsStore(questions ...*model.Question) *fakeMetricsStore {
	byID := make(map[uint]*model.Question)
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &fakeMetricsStore{questions: byID}
}

func (f *fakeMetricsStore) MetricsSnapshot(id uint) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := *f.questions[id]
	return &q, nil
}

func (f *fakeMetricsStore) UpdateMetrics(id uint, totalAttempts, correctAttempts int, successRate float64, avgTimeSpent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.questions[id]
	q.TotalAttempts = totalAttempts
	q.CorrectAttempts = correctAttempts
	q.SuccessRate = successRate
	q.AvgTimeSpent = avgTimeSpent
	f.updates++
	return nil
}

func (f *fakeMetricsStore) get(id uint) model.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.questions[id]
}

func TestMetricsUpdaterFirstAnswer(t *testing.T) {
	q := &model.Question{}
	q.ID = 1
	store := newFakeMetricsStore(q)
	updater := NewMetricsUpdater(store, cache.NewMemoryStore(), 16)
	updater.Start()

	updater.Enqueue(MetricsJob{QuestionID: 1, IsCorrect: true, TimeSpent: 30})
	updater.Stop()

	got := store.get(1)
	assert.Equal(t, 1, got.TotalAttempts)
	assert.Equal(t, 1, got.CorrectAttempts)
	assert.InDelta(t, 100, got.SuccessRate, 0.001)
	assert.Equal(t, 30, got.AvgTimeSpent)
}

func TestMetricsUpdaterRollingAverage(t *testing.T) {
	q := &model.Question{TotalAttempts: 1, CorrectAttempts: 1, SuccessRate: 100, AvgTimeSpent: 30}
	q.ID = 1
	store := newFakeMetricsStore(q)
	updater := NewMetricsUpdater(store, cache.NewMemoryStore(), 16)
	updater.Start()

	updater.Enqueue(MetricsJob{QuestionID: 1, IsCorrect: false, TimeSpent: 10})
	updater.Stop()

	got := store.get(1)
	assert.Equal(t, 2, got.TotalAttempts)
	assert.Equal(t, 1, got.CorrectAttempts)
	assert.InDelta(t, 50, got.SuccessRate, 0.001)
	// (30*1 + 10) / 2 = 20
	assert.Equal(t, 20, got.AvgTimeSpent)
}

func TestMetricsUpdaterInvalidatesQuestionCache(t *testing.T) {
	q := &model.Question{}
	q.ID = 7
	store := newFakeMetricsStore(q)
	mem := cache.NewMemoryStore()
	mem.Set(context.Background(), cache.QuestionKey(7), "stale", time.Minute)

	updater := NewMetricsUpdater(store, mem, 16)
	updater.Start()
	updater.Enqueue(MetricsJob{QuestionID: 7, IsCorrect: true, TimeSpent: 5})
	updater.Stop()

	_, ok := mem.Get(context.Background(), cache.QuestionKey(7))
	assert.False(t, ok)
}

func TestMetricsUpdaterDropsWhenFull(t *testing.T) {
	q := &model.Question{}
	q.ID = 1
	store := newFakeMetricsStore(q)
	// 不启动消费者，容量1：第二个任务必须被丢弃而不是阻塞
	updater := NewMetricsUpdater(store, cache.NewMemoryStore(), 1)

	done := make(chan struct{})
	go func() {
		updater.Enqueue(MetricsJob{QuestionID: 1})
		updater.Enqueue(MetricsJob{QuestionID: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on full queue")
	}
	assert.Equal(t, 1, updater.QueueDepth())
}

func TestMetricsUpdaterStopDrainsBacklog(t *testing.T) {
	q := &model.Question{}
	q.ID = 1
	store := newFakeMetricsStore(q)
	updater := NewMetricsUpdater(store, cache.NewMemoryStore(), 16)

	for i := 0; i < 10; i++ {
		updater.Enqueue(MetricsJob{QuestionID: 1, IsCorrect: i%2 == 0, TimeSpent: 10})
	}
	updater.Start()
	updater.Stop()

	got := store.get(1)
	require.Equal(t, 10, got.TotalAttempts)
	assert.Equal(t, 5, got.CorrectAttempts)
	assert.InDelta(t, 50, got.SuccessRate, 0.001)
	assert.Equal(t, 0, updater.QueueDepth())
}
