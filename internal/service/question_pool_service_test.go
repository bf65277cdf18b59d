package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuestionStore struct {
	questions   []model.Question
	filterCalls int
	byIDsCalls  int
}

func (f *fakeQuestionStore) matches(q model.Question, filters model.QuestionFilters) bool {
	if filters.SystemID != nil && (q.SystemID == nil || *q.SystemID != *filters.SystemID) {
		return false
	}
	if filters.TopicID != nil && (q.TopicID == nil || *q.TopicID != *filters.TopicID) {
		return false
	}
	if filters.SubjectID != nil && (q.SubjectID == nil || *q.SubjectID != *filters.SubjectID) {
		return false
	}
	if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
		return false
	}
	return true
}

func (f *fakeQuestionStore) FindByFilters(filters model.QuestionFilters, limit int) ([]model.Question, error) {
	f.filterCalls++
	var out []model.Question
	for _, q := range f.questions {
		if f.matches(q, filters) {
			out = append(out, q)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) IDsByTriple(systemID, topicID uint, difficulty model.Difficulty) ([]uint, error) {
	filters := model.QuestionFilters{SystemID: &systemID, TopicID: &topicID, Difficulty: &difficulty}
	var ids []uint
	for _, q := range f.questions {
		if f.matches(q, filters) {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (f *fakeQuestionStore) FindByIDs(ids []uint) ([]model.Question, error) {
	f.byIDsCalls++
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeTopicLister struct {
	topics []model.Topic
}

func (f *fakeTopicLister) AllTopics() ([]model.Topic, error) {
	return f.topics, nil
}

func uintPtr(v uint) *uint { return &v }

func difficultyPtr(d model.Difficulty) *model.Difficulty { return &d }

func makeQuestion(id, systemID, topicID uint, difficulty model.Difficulty) model.Question {
	q := model.Question{
		Difficulty: difficulty,
		SystemID:   &systemID,
		TopicID:    &topicID,
	}
	q.ID = id
	return q
}

func newPoolFixture(questions ...model.Question) (*QuestionPoolService, *fakeQuestionStore, *cache.MemoryStore) {
	store := &fakeQuestionStore{questions: questions}
	mem := cache.NewMemoryStore()
	pool := NewQuestionPoolService(store, &fakeTopicLister{}, mem, testQuizConfig())
	return pool, store, mem
}

func questionIDs(questions []model.Question) []uint {
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func TestGetQuestionsForTestPoolCaching(t *testing.T) {
	var qs []model.Question
	for id := uint(1); id <= 20; id++ {
		qs = append(qs, makeQuestion(id, 1, 2, model.DifficultyEasy))
	}
	pool, store, _ := newPoolFixture(qs...)
	ctx := context.Background()

	filters := model.QuestionFilters{
		SystemID:   uintPtr(1),
		TopicID:    uintPtr(2),
		Difficulty: difficultyPtr(model.DifficultyEasy),
		Limit:      5,
	}

	first, err := pool.GetQuestionsForTest(ctx, filters)
	require.NoError(t, err)
	assert.Len(t, first, 5)
	assert.Equal(t, 1, store.filterCalls)

	// 第二次命中题池缓存，不再按条件查库
	second, err := pool.GetQuestionsForTest(ctx, filters)
	require.NoError(t, err)
	assert.Len(t, second, 5)
	assert.Equal(t, 1, store.filterCalls)
	// 题池内顺序固定，两次取到同一前缀
	assert.Equal(t, questionIDs(first), questionIDs(second))
}

func TestGetQuestionsForTestInsufficientMatches(t *testing.T) {
	// 只有3道符合条件：返回全部3道，不凑数不报错
	pool, _, _ := newPoolFixture(
		makeQuestion(1, 1, 2, model.DifficultyEasy),
		makeQuestion(2, 1, 2, model.DifficultyEasy),
		makeQuestion(3, 1, 2, model.DifficultyEasy),
		makeQuestion(4, 1, 2, model.DifficultyHard),
	)

	got, err := pool.GetQuestionsForTest(context.Background(), model.QuestionFilters{
		SystemID:   uintPtr(1),
		TopicID:    uintPtr(2),
		Difficulty: difficultyPtr(model.DifficultyEasy),
		Limit:      5,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.ElementsMatch(t, []uint{1, 2, 3}, questionIDs(got))
}

func TestGetQuestionsForTestNoMatches(t *testing.T) {
	pool, _, _ := newPoolFixture(makeQuestion(1, 1, 2, model.DifficultyEasy))

	got, err := pool.GetQuestionsForTest(context.Background(), model.QuestionFilters{
		SystemID:   uintPtr(9),
		TopicID:    uintPtr(9),
		Difficulty: difficultyPtr(model.DifficultyHard),
		Limit:      5,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetQuestionsForTestPartialFilters(t *testing.T) {
	// 三元组不齐时不经题池，直接按条件取数
	pool, store, mem := newPoolFixture(
		makeQuestion(1, 1, 2, model.DifficultyEasy),
		makeQuestion(2, 1, 3, model.DifficultyEasy),
		makeQuestion(3, 2, 4, model.DifficultyEasy),
	)

	got, err := pool.GetQuestionsForTest(context.Background(), model.QuestionFilters{
		SystemID: uintPtr(1),
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, store.filterCalls)
	assert.Equal(t, 0, mem.Len())
}

func TestGetQuestionsByIDsHydration(t *testing.T) {
	q1 := makeQuestion(1, 1, 2, model.DifficultyEasy)
	q2 := makeQuestion(2, 1, 2, model.DifficultyEasy)
	pool, store, mem := newPoolFixture(q1, q2)
	ctx := context.Background()

	got, err := pool.GetQuestionsByIDs(ctx, []uint{1, 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, store.byIDsCalls)

	// 回填后再次水合不查库
	got, err = pool.GetQuestionsByIDs(ctx, []uint{1, 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, store.byIDsCalls)

	// 失效单题后只补查缺失的那道
	pool.InvalidateQuestion(ctx, 1)
	got, err = pool.GetQuestionsByIDs(ctx, []uint{1, 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, store.byIDsCalls)
	assert.Equal(t, 2, mem.Len())
}

func TestGeneratePools(t *testing.T) {
	store := &fakeQuestionStore{questions: []model.Question{
		makeQuestion(1, 1, 10, model.DifficultyEasy),
		makeQuestion(2, 1, 10, model.DifficultyEasy),
		makeQuestion(3, 1, 10, model.DifficultyHard),
		makeQuestion(4, 2, 20, model.DifficultyMedium),
	}}
	topics := &fakeTopicLister{topics: []model.Topic{
		{BaseModel: model.BaseModel{ID: 10}, SystemID: 1},
		{BaseModel: model.BaseModel{ID: 20}, SystemID: 2},
	}}
	mem := cache.NewMemoryStore()
	pool := NewQuestionPoolService(store, topics, mem, testQuizConfig())

	generated, err := pool.GeneratePools(context.Background())
	require.NoError(t, err)
	// (1,10,EASY), (1,10,HARD), (2,20,MEDIUM)；空组合跳过
	assert.Equal(t, 3, generated)
	assert.Equal(t, 3, mem.Len())
}

func TestSortByIDList(t *testing.T) {
	q1 := makeQuestion(1, 1, 2, model.DifficultyEasy)
	q2 := makeQuestion(2, 1, 2, model.DifficultyEasy)
	q3 := makeQuestion(3, 1, 2, model.DifficultyEasy)

	ordered := sortByIDList([]model.Question{q3, q1, q2}, []uint{2, 3, 1})
	assert.Equal(t, []uint{2, 3, 1}, questionIDs(ordered))

	// 列表中不存在的ID直接跳过
	ordered = sortByIDList([]model.Question{q1}, []uint{2, 1})
	assert.Equal(t, []uint{1}, questionIDs(ordered))
}
