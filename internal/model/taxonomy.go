package model

// 分类层级：System 拥有 Topic；Subject 与 System/Topic 正交。
// questionCount 为反范式字段，批量导入后通过显式重算维护。

// swagger:model Subject
type Subject struct {
	BaseModel
	Name          string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	QuestionCount int    `gorm:"default:0" json:"questionCount"`
}

func (Subject) TableName() string {
	return "subjects"
}

// swagger:model System
type System struct {
	BaseModel
	Name          string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	QuestionCount int     `gorm:"default:0" json:"questionCount"`
	Topics        []Topic `gorm:"foreignKey:SystemID" json:"topics,omitempty"`
}

func (System) TableName() string {
	return "systems"
}

// swagger:model Topic
type Topic struct {
	BaseModel
	SystemID      uint   `gorm:"index;not null" json:"systemId"`
	Name          string `gorm:"size:255;not null" json:"name"`
	QuestionCount int    `gorm:"default:0" json:"questionCount"`
}

func (Topic) TableName() string {
	return "topics"
}
