package repository

import (
	"errors"
	"fmt"

	"github.com/rallyrank/league-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMatchRepository is a GORM implementation of MatchRepository
type GormMatchRepository struct {
	db *gorm.DB
}

var (
	// ErrWinnerNotInLeague is returned when the winner holds no membership in the league.
	ErrWinnerNotInLeague = errors.New("match repository: winner is not in this league")
	// ErrLoserNotInLeague is returned when the loser holds no membership in the league.
	ErrLoserNotInLeague = errors.New("match repository: loser is not in this league")
)

// NewMatchRepository creates a new MatchRepository
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &GormMatchRepository{db: db}
}

// RecordMatch applies a match result atomically. Both membership rows are
// locked before the elo read so concurrent reports against the same pair are
// serialized by the database.
func (r *GormMatchRepository) RecordMatch(leagueID, winnerUserID, loserUserID uint64, compute func(winnerElo, loserElo int) (int, int)) (*models.Match, error) {
	var match *models.Match

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var winner, loser models.LeagueMember

		if err := lockForUpdate(tx).
			Where("league_id = ? AND user_id = ?", leagueID, winnerUserID).
			First(&winner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWinnerNotInLeague
			}
			return fmt.Errorf("failed to load winner membership: %w", err)
		}

		if err := lockForUpdate(tx).
			Where("league_id = ? AND user_id = ?", leagueID, loserUserID).
			First(&loser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoserNotInLeague
			}
			return fmt.Errorf("failed to load loser membership: %w", err)
		}

		winnerDelta, loserDelta := compute(winner.Elo, loser.Elo)

		if err := tx.Model(&models.LeagueMember{}).
			Where("league_id = ? AND user_id = ?", leagueID, winnerUserID).
			Update("elo", winner.Elo+winnerDelta).Error; err != nil {
			return fmt.Errorf("failed to update winner elo: %w", err)
		}

		if err := tx.Model(&models.LeagueMember{}).
			Where("league_id = ? AND user_id = ?", leagueID, loserUserID).
			Update("elo", loser.Elo+loserDelta).Error; err != nil {
			return fmt.Errorf("failed to update loser elo: %w", err)
		}

		match = &models.Match{
			LeagueID:        leagueID,
			WinnerID:        winnerUserID,
			LoserID:         loserUserID,
			WinnerEloChange: winnerDelta,
			LoserEloChange:  loserDelta,
		}
		if err := tx.Create(match).Error; err != nil {
			return fmt.Errorf("failed to record match: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return match, nil
}

// ListByLeague lists a league's matches, most recent first
func (r *GormMatchRepository) ListByLeague(leagueID uint64) ([]models.Match, error) {
	var matches []models.Match
	if err := r.db.Preload("Winner").Preload("Loser").
		Where("league_id = ?", leagueID).
		Order("played_at DESC, id DESC").
		Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// lockForUpdate applies a row-level write lock where the dialect supports
// it. sqlite has no FOR UPDATE syntax; its single-writer transactions
// serialize the update regardless.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
