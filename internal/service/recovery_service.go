package service

import (
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type testFinder interface {
	FindForUser(testID, userID uint) (*model.Test, error)
}

type sessionReader interface {
	ListByTest(testID uint) ([]model.TestSession, error)
	EventsBySession(sessionID uint) ([]model.StatusEvent, error)
}

// RecoveryService 会话恢复读模型：把某测验的会话与事件日志投影成
// 客户端可消费的时间线。纯读操作，不改任何行。
type RecoveryService struct {
	Tests    testFinder
	Sessions sessionReader
}

func NewRecoveryService(tests testFinder, sessions sessionReader) *RecoveryService {
	return &RecoveryService{Tests: tests, Sessions: sessions}
}

// GetRecoveryTimeline 产出恢复时间线。测验不存在或不属于该用户时
// 统一返回 ErrTestNotFound（区别于空集200）。
func (s *RecoveryService) GetRecoveryTimeline(testID, userID uint) (*model.TestRecovery, error) {
	if _, err := s.Tests.FindForUser(testID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	sessions, err := s.Sessions.ListByTest(testID)
	if err != nil {
		return nil, err
	}

	recovery := &model.TestRecovery{
		TestID:        testID,
		TotalAttempts: len(sessions),
		Sessions:      make([]model.SessionSummary, 0, len(sessions)),
		Events:        make([]model.TimelineEvent, 0),
	}

	for _, session := range sessions {
		events, err := s.Sessions.EventsBySession(session.ID)
		if err != nil {
			return nil, err
		}

		summary := model.SessionSummary{
			SessionNumber:     session.SessionNumber,
			StartedAt:         formatTime(session.StartedAt),
			PausedAt:          formatTimePtr(session.PausedAt),
			ResumedAt:         formatTimePtr(session.ResumedAt),
			EndedAt:           formatTimePtr(session.EndedAt),
			DisconnectCount:   session.DisconnectCount,
			QuestionsAnswered: session.QuestionsAnswered,
			CompletionStatus:  session.Status(),
		}

		for _, event := range events {
			// 会话内第一条 PAUSED 事件的原因作为该会话的摘要原因
			if summary.Reason == nil && event.EventType == model.EventPaused {
				summary.Reason = event.Reason
			}
			recovery.Events = append(recovery.Events, model.TimelineEvent{
				Timestamp:     formatTime(event.CreatedAt),
				Type:          event.EventType,
				Question:      event.QuestionIndex,
				Reason:        event.Reason,
				SessionNumber: session.SessionNumber,
				AttemptNumber: event.AttemptNumber,
			})
		}

		recovery.Sessions = append(recovery.Sessions, summary)
	}

	return recovery, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
