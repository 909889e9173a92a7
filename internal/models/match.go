package models

import "time"

// Match is an append-only record of a reported result. Rows are never
// updated or deleted once written.
type Match struct {
	ID              uint64    `gorm:"primarykey" json:"id"`
	LeagueID        uint64    `gorm:"not null" json:"league_id"`
	WinnerID        uint64    `gorm:"not null" json:"winner_id"`
	LoserID         uint64    `gorm:"not null" json:"loser_id"`
	WinnerEloChange int       `gorm:"not null" json:"winner_elo_change"`
	LoserEloChange  int       `gorm:"not null" json:"loser_elo_change"`
	PlayedAt        time.Time `gorm:"autoCreateTime" json:"played_at"`

	// Relations
	League League `gorm:"foreignKey:LeagueID" json:"league,omitempty"`
	Winner User   `gorm:"foreignKey:WinnerID" json:"winner,omitempty"`
	Loser  User   `gorm:"foreignKey:LoserID" json:"loser,omitempty"`
}
