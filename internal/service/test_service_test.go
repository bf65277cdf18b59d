package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/cache"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTestStore struct {
	tests     map[uint]*model.Test
	orderings map[uint][]uint
	answers   []*model.TestAnswer
	nextID    uint
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{
		tests:     map[uint]*model.Test{},
		orderings: map[uint][]uint{},
	}
}

func (f *fakeTestStore) CreateWithQuestions(test *model.Test, questionIDs []uint) error {
	f.nextID++
	test.ID = f.nextID
	test.QuestionCount = len(questionIDs)
	f.tests[test.ID] = test
	f.orderings[test.ID] = questionIDs
	return nil
}

func (f *fakeTestStore) FindForUser(testID, userID uint) (*model.Test, error) {
	test, ok := f.tests[testID]
	if !ok || test.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return test, nil
}

func (f *fakeTestStore) LatestUnsubmitted(userID uint) (*model.Test, error) {
	var latest *model.Test
	for _, test := range f.tests {
		if test.UserID != userID || test.Submitted {
			continue
		}
		if latest == nil || test.ID > latest.ID {
			latest = test
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeTestStore) OrderedQuestionIDs(testID uint) ([]uint, error) {
	return f.orderings[testID], nil
}

func (f *fakeTestStore) MarkSubmitted(testID uint) error {
	f.tests[testID].Submitted = true
	return nil
}

func (f *fakeTestStore) SaveAnswer(answer *model.TestAnswer) error {
	f.answers = append(f.answers, answer)
	return nil
}

type fakeSessionStore struct {
	sessions []*model.TestSession
	events   []*model.StatusEvent
}

func (f *fakeSessionStore) Create(session *model.TestSession) error {
	session.ID = uint(len(f.sessions) + 1)
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessionStore) LatestByTest(testID uint) (*model.TestSession, error) {
	var latest *model.TestSession
	for _, s := range f.sessions {
		if s.TestID != testID {
			continue
		}
		if latest == nil || s.SessionNumber > latest.SessionNumber {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeSessionStore) AppendEvent(event *model.StatusEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSessionStore) byID(id uint) *model.TestSession {
	for _, s := range f.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (f *fakeSessionStore) TouchActivity(sessionID uint, answered bool) error {
	s := f.byID(sessionID)
	s.LastActivityAt = time.Now()
	if answered {
		s.QuestionsAnswered++
	}
	return nil
}

func (f *fakeSessionStore) MarkPaused(sessionID uint, at time.Time) error {
	s := f.byID(sessionID)
	s.PausedAt = &at
	s.LastActivityAt = at
	return nil
}

func (f *fakeSessionStore) MarkResumed(sessionID uint, at time.Time) error {
	s := f.byID(sessionID)
	s.ResumedAt = &at
	s.LastActivityAt = at
	return nil
}

func (f *fakeSessionStore) MarkEnded(sessionID uint, at time.Time) error {
	s := f.byID(sessionID)
	s.EndedAt = &at
	s.LastActivityAt = at
	return nil
}

func (f *fakeSessionStore) IncrementDisconnect(sessionID uint) error {
	f.byID(sessionID).DisconnectCount++
	return nil
}

type fakeAnswerReader struct {
	questions map[uint]*model.Question
}

func (f *fakeAnswerReader) FindByID(id uint) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeAnswerReader) OptionBelongsToQuestion(questionID, optionID uint) (*model.AnswerOption, error) {
	q, ok := f.questions[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAnswerRecorder struct {
	calls int
}

func (f *fakeAnswerRecorder) RecordAnswer(userID, systemID, topicID uint, isCorrect bool) error {
	f.calls++
	return nil
}

type testServiceFixture struct {
	svc      *TestService
	tests    *fakeTestStore
	sessions *fakeSessionStore
	mem      *cache.MemoryStore
}

func newTestServiceFixture(questions ...model.Question) *testServiceFixture {
	pool, _, mem := newPoolFixture(questions...)
	tests := newFakeTestStore()
	sessions := &fakeSessionStore{}
	reader := &fakeAnswerReader{questions: map[uint]*model.Question{}}
	for i := range questions {
		q := questions[i]
		reader.questions[q.ID] = &q
	}
	updater := NewMetricsUpdater(newFakeMetricsStore(), cache.NewMemoryStore(), 4)
	svc := NewTestService(tests, sessions, reader, &fakeAnswerRecorder{}, pool, nil, updater, mem, testQuizConfig())
	return &testServiceFixture{svc: svc, tests: tests, sessions: sessions, mem: mem}
}

func (fx *testServiceFixture) seedTest(userID uint, questionIDs []uint) *model.Test {
	test := &model.Test{UserID: userID}
	fx.tests.CreateWithQuestions(test, questionIDs)
	return test
}

func TestResumeTestWithinIdleGapKeepsSession(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	test := fx.seedTest(1, []uint{1})
	fx.sessions.Create(&model.TestSession{
		TestID:         test.ID,
		UserID:         1,
		SessionNumber:  1,
		StartedAt:      time.Now().Add(-time.Hour),
		LastActivityAt: time.Now().Add(-5 * time.Minute),
	})

	require.NoError(t, fx.svc.ResumeTest(context.Background(), 1, test.ID))

	// 空闲未超阈值：沿用当前会话，不开新编号
	require.Len(t, fx.sessions.sessions, 1)
	assert.NotNil(t, fx.sessions.sessions[0].ResumedAt)
	require.Len(t, fx.sessions.events, 1)
	assert.Equal(t, model.EventResumed, fx.sessions.events[0].EventType)
	assert.Equal(t, 1, fx.sessions.events[0].AttemptNumber)
}

func TestResumeTestAfterIdleGapOpensNextSession(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	test := fx.seedTest(1, []uint{1})
	idle := time.Now().Add(-31 * time.Minute)
	fx.sessions.Create(&model.TestSession{
		TestID:         test.ID,
		UserID:         1,
		SessionNumber:  1,
		StartedAt:      time.Now().Add(-time.Hour),
		LastActivityAt: idle,
	})

	require.NoError(t, fx.svc.ResumeTest(context.Background(), 1, test.ID))

	// 超过空闲阈值：上一会话以最后活动时刻隐式关闭，新会话编号+1
	require.Len(t, fx.sessions.sessions, 2)
	prev, next := fx.sessions.sessions[0], fx.sessions.sessions[1]
	require.NotNil(t, prev.EndedAt)
	assert.Equal(t, idle, *prev.EndedAt)
	assert.Equal(t, 2, next.SessionNumber)
	require.Len(t, fx.sessions.events, 1)
	assert.Equal(t, 2, fx.sessions.events[0].AttemptNumber)
}

func TestResumeTestWithoutSessionOpensFirst(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	test := fx.seedTest(1, []uint{1})

	require.NoError(t, fx.svc.ResumeTest(context.Background(), 1, test.ID))

	require.Len(t, fx.sessions.sessions, 1)
	assert.Equal(t, 1, fx.sessions.sessions[0].SessionNumber)
}

func TestCreateTestWidensSearchOnZeroHits(t *testing.T) {
	cases := []struct {
		name string
		seed model.Question
		req  CreateTestRequest
	}{
		{
			// 指定难度下零命中：放宽难度后命中
			name: "drop difficulty",
			seed: makeQuestion(1, 1, 10, model.DifficultyEasy),
			req: CreateTestRequest{
				SystemID:   uintPtr(1),
				TopicID:    uintPtr(10),
				Difficulty: difficultyPtr(model.DifficultyHard),
				Limit:      5,
			},
		},
		{
			// 主题下无题：放宽到系统层命中
			name: "drop topic",
			seed: makeQuestion(1, 1, 99, model.DifficultyEasy),
			req: CreateTestRequest{
				SystemID:   uintPtr(1),
				TopicID:    uintPtr(10),
				Difficulty: difficultyPtr(model.DifficultyHard),
				Limit:      5,
			},
		},
		{
			// 系统下也无题：全库兜底
			name: "unfiltered fallback",
			seed: makeQuestion(1, 9, 99, model.DifficultyEasy),
			req: CreateTestRequest{
				SystemID: uintPtr(1),
				TopicID:  uintPtr(10),
				Limit:    5,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newTestServiceFixture(tc.seed)

			test, questions, err := fx.svc.CreateTest(context.Background(), 1, tc.req)
			require.NoError(t, err)
			require.Len(t, questions, 1)
			assert.Equal(t, uint(1), questions[0].ID)
			assert.Equal(t, 1, test.QuestionCount)
			// 组卷同时开启首个会话
			require.Len(t, fx.sessions.sessions, 1)
			assert.Equal(t, 1, fx.sessions.sessions[0].SessionNumber)
		})
	}
}

func TestCreateTestEmptyBank(t *testing.T) {
	fx := newTestServiceFixture()

	_, _, err := fx.svc.CreateTest(context.Background(), 1, CreateTestRequest{Limit: 5})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestGetActiveTestFallsBackToStore(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	test := fx.seedTest(1, []uint{1})

	// 指针缓存为空（热TTL过期）：回源取未交卷测验，而非误报不存在
	got, err := fx.svc.GetActiveTest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, test.ID, got.ID)

	// 回源成功后指针已回填
	raw, ok := fx.mem.Get(context.Background(), cache.UserActiveTestKey(1))
	require.True(t, ok)
	assert.Equal(t, "1", raw)
}

func TestGetActiveTestStalePointerReresolves(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	old := fx.seedTest(1, []uint{1})
	fx.tests.MarkSubmitted(old.ID)
	current := fx.seedTest(1, []uint{1})

	// 指针指向已交卷的旧测验：剔除后回源到当前未交卷测验
	fx.mem.Set(context.Background(), cache.UserActiveTestKey(1), "1", time.Minute)

	got, err := fx.svc.GetActiveTest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)
}

func TestGetActiveTestNoUnsubmitted(t *testing.T) {
	fx := newTestServiceFixture(makeQuestion(1, 1, 10, model.DifficultyEasy))
	test := fx.seedTest(1, []uint{1})
	fx.tests.MarkSubmitted(test.ID)

	_, err := fx.svc.GetActiveTest(context.Background(), 1)
	assert.ErrorIs(t, err, util.ErrTestNotFound)
}
