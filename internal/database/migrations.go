package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Membership lookups by either side of the (user, league) pair
		{"league_members", "idx_league_members_league_id", "league_id"},
		{"league_members", "idx_league_members_user_id", "user_id"},

		// Match history scans per league in reverse chronological order
		{"matches", "idx_matches_league_id", "league_id"},
		{"matches", "idx_matches_played_at", "played_at"},
		{"matches", "idx_matches_winner_id", "winner_id"},
		{"matches", "idx_matches_loser_id", "loser_id"},

		// Code consumption looks up (code, type) on unused rows; supersession
		// scans (user_id, type, used)
		{"verification_codes", "idx_verification_codes_code_type", "code, type"},
		{"verification_codes", "idx_verification_codes_user_type_used", "user_id, type, used"},

		// Private league resolution by invite code
		{"leagues", "idx_leagues_invite_code", "invite_code"},
		{"leagues", "idx_leagues_is_public", "is_public"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		fmt.Printf("Created index %s on %s(%s)\n", idx.name, idx.table, idx.columns)
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
