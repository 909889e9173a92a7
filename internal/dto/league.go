package dto

import (
	"time"

	"github.com/rallyrank/league-api/internal/models"
)

// LeagueResponse represents a league in list and mutation responses
type LeagueResponse struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	IsPublic          bool      `json:"is_public"`
	InviteCode        *string   `json:"invite_code,omitempty"`
	CreatedByUsername string    `json:"created_by_username"`
	CreatedAt         time.Time `json:"created_at"`
	MemberCount       int64     `json:"member_count"`
}

// LeagueMemberResponse represents a member with derived standings stats
type LeagueMemberResponse struct {
	UserID   uint64            `json:"user_id"`
	Username string            `json:"username"`
	Role     models.LeagueRole `json:"role"`
	Elo      int               `json:"elo"`
	JoinedAt time.Time         `json:"joined_at"`
	Wins     int               `json:"wins"`
	Losses   int               `json:"losses"`
	// Trend holds up to the 5 most recent results, most recent first,
	// e.g. "WWLWL". Shorter histories are truncated, not padded.
	Trend string `json:"trend"`
}

// LeagueDetailResponse represents full league standings. InviteCode is only
// populated for members, the league creator, and super admins.
type LeagueDetailResponse struct {
	ID                uint64                 `json:"id"`
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	IsPublic          bool                   `json:"is_public"`
	InviteCode        *string                `json:"invite_code,omitempty"`
	CreatedByUsername string                 `json:"created_by_username"`
	CreatedAt         time.Time              `json:"created_at"`
	MemberCount       int                    `json:"member_count"`
	Members           []LeagueMemberResponse `json:"members"`
}

// MatchResponse represents a recorded match result
type MatchResponse struct {
	ID              uint64    `json:"id"`
	WinnerUsername  string    `json:"winner_username"`
	LoserUsername   string    `json:"loser_username"`
	WinnerEloChange int       `json:"winner_elo_change"`
	LoserEloChange  int       `json:"loser_elo_change"`
	PlayedAt        time.Time `json:"played_at"`
}

// ToLeagueResponse converts a league model to DTO
func ToLeagueResponse(league models.League, memberCount int64) LeagueResponse {
	return LeagueResponse{
		ID:                league.ID,
		Name:              league.Name,
		Description:       league.Description,
		IsPublic:          league.IsPublic,
		InviteCode:        league.InviteCode,
		CreatedByUsername: league.CreatedBy.Username,
		CreatedAt:         league.CreatedAt,
		MemberCount:       memberCount,
	}
}

// ToMatchResponse converts a match model to DTO
func ToMatchResponse(match models.Match) MatchResponse {
	return MatchResponse{
		ID:              match.ID,
		WinnerUsername:  match.Winner.Username,
		LoserUsername:   match.Loser.Username,
		WinnerEloChange: match.WinnerEloChange,
		LoserEloChange:  match.LoserEloChange,
		PlayedAt:        match.PlayedAt,
	}
}
