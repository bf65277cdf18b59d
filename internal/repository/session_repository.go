package repository

import (
	"exam_prep_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// ListByTest 返回某测验的全部会话，createdAt 升序。
// 该顺序定义了 sessionNumber 语义：第N个会话必然先于第N+1个创建。
func (r *SessionRepository) ListByTest(testID uint) ([]model.TestSession, error) {
	var sessions []model.TestSession
	err := r.DB.Where("test_id = ?", testID).Order("created_at ASC").Find(&sessions).Error
	return sessions, err
}

// EventsBySession 返回会话内事件，createdAt 升序
func (r *SessionRepository) EventsBySession(sessionID uint) ([]model.StatusEvent, error) {
	var events []model.StatusEvent
	err := r.DB.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// LatestByTest 返回编号最大的会话；无会话时返回 gorm.ErrRecordNotFound
func (r *SessionRepository) LatestByTest(testID uint) (*model.TestSession, error) {
	var session model.TestSession
	err := r.DB.Where("test_id = ?", testID).Order("session_number DESC").First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(session *model.TestSession) error {
	return r.DB.Create(session).Error
}

func (r *SessionRepository) AppendEvent(event *model.StatusEvent) error {
	return r.DB.Create(event).Error
}

// TouchActivity 累加答题数并刷新活动时间
func (r *SessionRepository) TouchActivity(sessionID uint, answered bool) error {
	updates := map[string]interface{}{"last_activity_at": time.Now()}
	if answered {
		updates["questions_answered"] = gorm.Expr("questions_answered + 1")
	}
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).Updates(updates).Error
}

func (r *SessionRepository) MarkPaused(sessionID uint, at time.Time) error {
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{"paused_at": at, "last_activity_at": at}).Error
}

func (r *SessionRepository) MarkResumed(sessionID uint, at time.Time) error {
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{"resumed_at": at, "last_activity_at": at}).Error
}

func (r *SessionRepository) MarkEnded(sessionID uint, at time.Time) error {
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{"ended_at": at, "last_activity_at": at}).Error
}

func (r *SessionRepository) IncrementDisconnect(sessionID uint) error {
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).
		Update("disconnect_count", gorm.Expr("disconnect_count + 1")).Error
}
