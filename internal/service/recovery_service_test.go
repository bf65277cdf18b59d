package service

import (
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTestFinder struct {
	tests map[uint]*model.Test
}

func (f *fakeTestFinder) FindForUser(testID, userID uint) (*model.Test, error) {
	test, ok := f.tests[testID]
	if !ok || test.UserID != userID {
		// 归属校验失败与不存在同样返回 record not found
		return nil, gorm.ErrRecordNotFound
	}
	return test, nil
}

type fakeSessionReader struct {
	sessions []model.TestSession
	events   map[uint][]model.StatusEvent
}

func (f *fakeSessionReader) ListByTest(testID uint) ([]model.TestSession, error) {
	return f.sessions, nil
}

func (f *fakeSessionReader) EventsBySession(sessionID uint) ([]model.StatusEvent, error) {
	return f.events[sessionID], nil
}

func strPtr(s string) *string { return &s }

func makeSession(id uint, number int, startedAt time.Time, endedAt *time.Time) model.TestSession {
	s := model.TestSession{
		TestID:         1,
		UserID:         1,
		SessionNumber:  number,
		StartedAt:      startedAt,
		LastActivityAt: startedAt,
		EndedAt:        endedAt,
	}
	s.ID = id
	return s
}

func makeEvent(sessionID uint, eventType model.StatusEventType, at time.Time, reason *string) model.StatusEvent {
	e := model.StatusEvent{
		SessionID: sessionID,
		EventType: eventType,
		Reason:    reason,
	}
	e.CreatedAt = at
	return e
}

func TestGetRecoveryTimeline(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ended := base.Add(20 * time.Minute)

	tests := &fakeTestFinder{tests: map[uint]*model.Test{
		1: {UserID: 1},
	}}
	sessions := &fakeSessionReader{
		sessions: []model.TestSession{
			makeSession(11, 1, base, &ended),
			makeSession(12, 2, base.Add(time.Hour), nil),
		},
		events: map[uint][]model.StatusEvent{
			11: {
				makeEvent(11, model.EventAnswered, base.Add(time.Minute), nil),
				makeEvent(11, model.EventPaused, base.Add(10*time.Minute), strPtr("lunch break")),
				makeEvent(11, model.EventPaused, base.Add(15*time.Minute), strPtr("phone call")),
			},
			12: {
				makeEvent(12, model.EventResumed, base.Add(time.Hour), nil),
				makeEvent(12, model.EventDisconnected, base.Add(61*time.Minute), strPtr("network")),
			},
		},
	}

	recovery, err := NewRecoveryService(tests, sessions).GetRecoveryTimeline(1, 1)
	require.NoError(t, err)

	assert.Equal(t, uint(1), recovery.TestID)
	assert.Equal(t, 2, recovery.TotalAttempts)
	require.Len(t, recovery.Sessions, 2)
	require.Len(t, recovery.Events, 5)

	// 会话摘要取首条 PAUSED 事件的原因
	first := recovery.Sessions[0]
	assert.Equal(t, 1, first.SessionNumber)
	require.NotNil(t, first.Reason)
	assert.Equal(t, "lunch break", *first.Reason)
	assert.Equal(t, model.SessionComplete, first.CompletionStatus)

	second := recovery.Sessions[1]
	assert.Equal(t, 2, second.SessionNumber)
	assert.Nil(t, second.Reason)
	assert.Equal(t, model.SessionIncomplete, second.CompletionStatus)

	// 事件按会话顺序展开并标注 sessionNumber
	assert.Equal(t, 1, recovery.Events[0].SessionNumber)
	assert.Equal(t, model.EventAnswered, recovery.Events[0].Type)
	assert.Equal(t, 2, recovery.Events[3].SessionNumber)
	assert.Equal(t, model.EventResumed, recovery.Events[3].Type)

	// 时间戳为 RFC3339
	ts, parseErr := time.Parse(time.RFC3339, recovery.Events[0].Timestamp)
	require.NoError(t, parseErr)
	assert.True(t, ts.Equal(base.Add(time.Minute)))
}

func TestGetRecoveryTimelineOwnershipMismatch(t *testing.T) {
	tests := &fakeTestFinder{tests: map[uint]*model.Test{
		1: {UserID: 42},
	}}
	svc := NewRecoveryService(tests, &fakeSessionReader{})

	// 他人的测验与不存在的测验同样报 not found，不泄露存在性
	_, err := svc.GetRecoveryTimeline(1, 1)
	assert.ErrorIs(t, err, util.ErrTestNotFound)

	_, err = svc.GetRecoveryTimeline(999, 1)
	assert.ErrorIs(t, err, util.ErrTestNotFound)
}

func TestGetRecoveryTimelineNoSessions(t *testing.T) {
	tests := &fakeTestFinder{tests: map[uint]*model.Test{
		1: {UserID: 1},
	}}
	recovery, err := NewRecoveryService(tests, &fakeSessionReader{}).GetRecoveryTimeline(1, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, recovery.TotalAttempts)
	assert.Empty(t, recovery.Sessions)
	assert.Empty(t, recovery.Events)
}
