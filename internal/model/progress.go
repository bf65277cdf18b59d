package model

// Progress 每个 (user, system, topic) 的滚动表现记录。
// 自适应选择器与弱项查找器读取；由答题记录方写入。
// swagger:model Progress
type Progress struct {
	BaseModel
	UserID                  uint    `gorm:"index:idx_progress_user_system,priority:1;not null" json:"userId"`
	SystemID                uint    `gorm:"index:idx_progress_user_system,priority:2;not null" json:"systemId"`
	TopicID                 uint    `gorm:"index" json:"topicId"`
	SuccessRate             float64 `gorm:"default:0" json:"successRate"`
	TotalQuestionsAttempted int     `gorm:"default:0" json:"totalQuestionsAttempted"`
}

func (Progress) TableName() string {
	return "progress"
}
