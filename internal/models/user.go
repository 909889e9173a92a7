package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            uint64         `gorm:"primarykey" json:"id"`
	Username      string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  string         `gorm:"type:varchar(255);not null" json:"-"`
	EmailVerified bool           `gorm:"not null;default:false" json:"email_verified"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Memberships    []LeagueMember `gorm:"foreignKey:UserID" json:"-"`
	CreatedLeagues []League       `gorm:"foreignKey:CreatedByID" json:"-"`
}
