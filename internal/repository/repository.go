package repository

import (
	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByIdentifier finds a user by username or email
	FindByIdentifier(identifier string) (*models.User, error)

	// ExistsByUsername reports whether a user with the username exists
	ExistsByUsername(username string) (bool, error)

	// Update updates a user
	Update(user *models.User) error
}

// LeagueRepository defines the interface for league and membership data access
type LeagueRepository interface {
	// CreateWithOwner creates a league and the creator's OWNER membership
	// within a single transaction
	CreateWithOwner(league *models.League, owner *models.LeagueMember) error

	// FindByID finds a league by ID
	FindByID(id uint64) (*models.League, error)

	// FindByInviteCode finds a league by exact invite code
	FindByInviteCode(code string) (*models.League, error)

	// ListPublic lists public leagues with pagination
	ListPublic(params utils.PaginationParams) ([]models.League, int64, error)

	// AddMember adds a member to a league
	AddMember(member *models.LeagueMember) error

	// RemoveMember removes a member from a league
	RemoveMember(leagueID, userID uint64) error

	// FindMember finds a specific league membership
	FindMember(leagueID, userID uint64) (*models.LeagueMember, error)

	// ListMembers lists all members of a league
	ListMembers(leagueID uint64) ([]models.LeagueMember, error)

	// ListMembersByUserID lists all leagues a user is a member of
	ListMembersByUserID(userID uint64) ([]models.LeagueMember, error)

	// CountMembers counts the members of a league
	CountMembers(leagueID uint64) (int64, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	// RecordMatch applies a match result atomically: it locks both
	// memberships, computes the rating deltas from their current elo via
	// compute, updates both rows, and appends the match record. Either all
	// three writes commit or none do.
	RecordMatch(leagueID, winnerUserID, loserUserID uint64, compute func(winnerElo, loserElo int) (winnerDelta, loserDelta int)) (*models.Match, error)

	// ListByLeague lists a league's matches, most recent first
	ListByLeague(leagueID uint64) ([]models.Match, error)
}

// VerificationCodeRepository defines the interface for verification code data access
type VerificationCodeRepository interface {
	// IssueExclusive marks every unused code of the same user and type as
	// used, then creates the new code, within a single transaction
	IssueExclusive(code *models.VerificationCode) error

	// FindActive finds an unused code by (code, type)
	FindActive(code string, codeType models.VerificationCodeType) (*models.VerificationCode, error)

	// MarkUsed marks a code as used
	MarkUsed(code *models.VerificationCode) error
}
