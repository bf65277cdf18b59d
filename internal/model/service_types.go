package model

// QuestionFilters 题目筛选条件。所有字段可选；Limit<=0 时取配置默认值(50)。
// swagger:model QuestionFilters
type QuestionFilters struct {
	SystemID   *uint       `json:"systemId,omitempty" form:"systemId"`
	TopicID    *uint       `json:"topicId,omitempty" form:"topicId"`
	SubjectID  *uint       `json:"subjectId,omitempty" form:"subjectId"`
	Difficulty *Difficulty `json:"difficulty,omitempty" form:"difficulty"`
	Limit      int         `json:"limit,omitempty" form:"limit"`
}

// PoolCacheable 三元组齐备时才存在可缓存的题池键
func (f *QuestionFilters) PoolCacheable() bool {
	return f.SystemID != nil && f.TopicID != nil && f.Difficulty != nil
}

// SessionSummary 恢复时间线中的单个会话摘要
// swagger:model SessionSummary
type SessionSummary struct {
	SessionNumber     int              `json:"sessionNumber"`
	StartedAt         string           `json:"startedAt"`
	PausedAt          *string          `json:"pausedAt,omitempty"`
	ResumedAt         *string          `json:"resumedAt,omitempty"`
	EndedAt           *string          `json:"endedAt,omitempty"`
	DisconnectCount   int              `json:"disconnectCount"`
	QuestionsAnswered int              `json:"questionsAnswered"`
	Reason            *string          `json:"reason,omitempty"`
	CompletionStatus  CompletionStatus `json:"completionStatus"`
}

// TimelineEvent 扁平化的跨会话事件，携带所属 sessionNumber
// swagger:model TimelineEvent
type TimelineEvent struct {
	Timestamp     string          `json:"timestamp"`
	Type          StatusEventType `json:"type"`
	Question      int             `json:"question"`
	Reason        *string         `json:"reason,omitempty"`
	SessionNumber int             `json:"sessionNumber"`
	AttemptNumber int             `json:"attemptNumber"`
}

// TestRecovery 会话恢复端点的响应载荷
// swagger:model TestRecovery
type TestRecovery struct {
	TestID        uint             `json:"testId"`
	TotalAttempts int              `json:"totalAttempts"`
	Sessions      []SessionSummary `json:"sessions"`
	Events        []TimelineEvent  `json:"events"`
}

// SystemPerformance 学习者单系统表现快照
// swagger:model SystemPerformance
type SystemPerformance struct {
	SystemID    uint    `json:"systemId"`
	SuccessRate float64 `json:"successRate"`
	Attempted   int     `json:"attempted"`
}

// LeaderboardEntry 排行榜快照条目
// swagger:model LeaderboardEntry
type LeaderboardEntry struct {
	UserID      uint    `json:"userId"`
	Name        string  `json:"name"`
	SuccessRate float64 `json:"successRate"`
	Attempted   int     `json:"attempted"`
}
