package model

import "time"

// CompletionStatus 会话完成状态
type CompletionStatus string

const (
	SessionComplete   CompletionStatus = "COMPLETE"
	SessionIncomplete CompletionStatus = "INCOMPLETE"
)

// StatusEventType 会话事件类型
type StatusEventType string

const (
	EventPaused       StatusEventType = "PAUSED"
	EventResumed      StatusEventType = "RESUMED"
	EventDisconnected StatusEventType = "DISCONNECTED"
	EventAnswered     StatusEventType = "ANSWERED"
)

// TestSession 一次测验尝试中的一段连续作答区间。
// 学习者在超过空闲阈值后恢复作答时开启新会话，sessionNumber 单调递增。
// swagger:model TestSession
type TestSession struct {
	BaseModel
	TestID            uint       `gorm:"index;not null" json:"testId"`
	UserID            uint       `gorm:"index;not null" json:"userId"`
	SessionNumber     int        `gorm:"not null;default:1" json:"sessionNumber"`
	StartedAt         time.Time  `json:"startedAt"`
	PausedAt          *time.Time `json:"pausedAt,omitempty"`
	ResumedAt         *time.Time `json:"resumedAt,omitempty"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	LastActivityAt    time.Time  `json:"lastActivityAt"`
	DisconnectCount   int        `gorm:"default:0" json:"disconnectCount"`
	QuestionsAnswered int        `gorm:"default:0" json:"questionsAnswered"`

	Events []StatusEvent `gorm:"foreignKey:SessionID" json:"events,omitempty"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

// Status 按 endedAt 判定会话完成状态
func (s *TestSession) Status() CompletionStatus {
	if s.EndedAt != nil {
		return SessionComplete
	}
	return SessionIncomplete
}

// StatusEvent 仅追加的会话事件日志行，createdAt 内部严格有序，永不改写。
// swagger:model StatusEvent
type StatusEvent struct {
	BaseModel
	SessionID     uint            `gorm:"index;not null" json:"sessionId"`
	EventType     StatusEventType `gorm:"size:16;not null" json:"eventType"`
	QuestionIndex int             `gorm:"default:0" json:"questionIndex"`
	Reason        *string         `gorm:"size:255" json:"reason,omitempty"`
	AttemptNumber int             `gorm:"default:1" json:"attemptNumber"`
}

func (StatusEvent) TableName() string {
	return "status_events"
}
