package models

import (
	"time"

	"gorm.io/gorm"
)

type League struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsPublic    bool           `gorm:"not null;default:true" json:"is_public"`
	InviteCode  *string        `gorm:"type:varchar(8);uniqueIndex" json:"invite_code,omitempty"`
	CreatedByID uint64         `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedBy User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Members   []LeagueMember `gorm:"foreignKey:LeagueID" json:"members,omitempty"`
	Matches   []Match        `gorm:"foreignKey:LeagueID" json:"matches,omitempty"`
}
