package model

// Difficulty 题目难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is one of the three known buckets.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question 题目及其滚动统计。统计字段只由 MetricsUpdater 写入。
// swagger:model Question
type Question struct {
	BaseModel
	Text        string     `gorm:"type:text;not null" json:"text"`
	Explanation string     `gorm:"type:text" json:"explanation"`
	Difficulty  Difficulty `gorm:"size:10;not null;index" json:"difficulty"`
	ImageURL    string     `gorm:"size:512" json:"imageUrl,omitempty"`

	SubjectID *uint `gorm:"index" json:"subjectId,omitempty"`
	SystemID  *uint `gorm:"index" json:"systemId,omitempty"`
	TopicID   *uint `gorm:"index" json:"topicId,omitempty"`

	// 滚动指标。不变量: totalAttempts>0 时
	// successRate == 100*correctAttempts/totalAttempts
	TotalAttempts   int     `gorm:"default:0" json:"totalAttempts"`
	CorrectAttempts int     `gorm:"default:0" json:"correctAttempts"`
	SuccessRate     float64 `gorm:"default:0" json:"successRate"`
	AvgTimeSpent    int     `gorm:"default:0" json:"avgTimeSpent"` // 秒，滚动均值

	Options []AnswerOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// AnswerOption 选项，displayOrder 从0开始且同题内连续
// swagger:model AnswerOption
type AnswerOption struct {
	BaseModel
	QuestionID   uint   `gorm:"index;not null" json:"questionId"`
	Text         string `gorm:"type:text;not null" json:"text"`
	IsCorrect    bool   `gorm:"default:false" json:"isCorrect"`
	DisplayOrder int    `gorm:"default:0" json:"displayOrder"`
}

func (AnswerOption) TableName() string {
	return "answer_options"
}
