package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleViewer = "viewer"
)

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Username           string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash       string         `gorm:"size:255;not null" json:"-"`
	FullName           string         `gorm:"size:255;not null" json:"full_name"`
	Email              string         `gorm:"size:255" json:"email"`
	Role               string         `gorm:"size:20;default:'user'" json:"role"` // admin, user, viewer
	IsActive           bool           `gorm:"not null" json:"is_active"`
	IsRoot             bool           `gorm:"default:false" json:"is_root"`
	MustChangePassword bool           `gorm:"default:false" json:"must_change_password"`
	LastLogin          *time.Time     `json:"last_login"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}
