package model

// TestMode 组卷模式
type TestMode string

const (
	TestModeTimed    TestMode = "TIMED"
	TestModePractice TestMode = "PRACTICE"
)

// Test 一次测验尝试。题目集合在创建时固定，之后不再变更。
// swagger:model Test
type Test struct {
	BaseModel
	UserID    uint     `gorm:"index;not null" json:"userId"`
	Mode      TestMode `gorm:"size:16;not null;default:PRACTICE" json:"mode"`
	SystemID  *uint    `gorm:"index" json:"systemId,omitempty"`
	TopicID   *uint    `json:"topicId,omitempty"`
	SubjectID *uint    `json:"subjectId,omitempty"`

	QuestionCount int  `gorm:"default:0" json:"questionCount"`
	Submitted     bool `gorm:"default:false" json:"submitted"`

	Questions []TestQuestion `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// TestQuestion 测验-题目关联行，displayOrder 固定出题顺序
// swagger:model TestQuestion
type TestQuestion struct {
	BaseModel
	TestID       uint `gorm:"index;not null" json:"testId"`
	QuestionID   uint `gorm:"index;not null" json:"questionId"`
	DisplayOrder int  `gorm:"default:0" json:"displayOrder"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}
