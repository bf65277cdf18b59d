package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Email      string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password   string     `gorm:"size:255;not null" json:"-"`
	Name       string     `gorm:"size:255" json:"name"`
	Role       UserRole   `gorm:"size:16;not null;default:student" json:"role"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
