package model

// TestAnswer 学习者对某题的作答记录（边界写入；指标更新由异步任务完成）
// swagger:model TestAnswer
type TestAnswer struct {
	BaseModel
	TestID     uint `gorm:"index;not null" json:"testId"`
	UserID     uint `gorm:"index;not null" json:"userId"`
	QuestionID uint `gorm:"index;not null" json:"questionId"`
	OptionID   uint `gorm:"not null" json:"optionId"`
	IsCorrect  bool `gorm:"default:false" json:"isCorrect"`
	TimeSpent  int  `gorm:"default:0" json:"timeSpent"` // 秒
}

func (TestAnswer) TableName() string {
	return "test_answers"
}
