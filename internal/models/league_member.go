package models

import "time"

type LeagueRole string

const (
	RoleOwner  LeagueRole = "OWNER"
	RoleMember LeagueRole = "MEMBER"
)

type LeagueMember struct {
	LeagueID uint64     `gorm:"primarykey" json:"league_id"`
	UserID   uint64     `gorm:"primarykey" json:"user_id"`
	Role     LeagueRole `gorm:"type:varchar(20);not null" json:"role"`
	Elo      int        `gorm:"not null;default:1000" json:"elo"`
	JoinedAt time.Time  `json:"joined_at"`

	// Relations
	League League `gorm:"foreignKey:LeagueID" json:"league,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
