package repository

import (
	"errors"
	"fmt"

	"github.com/rallyrank/league-api/internal/database"
	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/utils"
	"gorm.io/gorm"
)

// GormLeagueRepository is a GORM implementation of LeagueRepository
type GormLeagueRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateLeague is returned when creating the league fails inside the creation transaction.
	ErrCreateLeague = errors.New("league repository: create league failed")
	// ErrCreateMembership is returned when creating the owner membership fails inside the creation transaction.
	ErrCreateMembership = errors.New("league repository: create owner membership failed")
)

// NewLeagueRepository creates a new LeagueRepository
func NewLeagueRepository(db *gorm.DB) LeagueRepository {
	return &GormLeagueRepository{db: db}
}

// CreateWithOwner creates a league and the creator's OWNER membership within
// a single transaction
func (r *GormLeagueRepository) CreateWithOwner(league *models.League, owner *models.LeagueMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(league).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateLeague, err)
		}

		owner.LeagueID = league.ID
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateMembership, err)
		}

		return nil
	})
}

// FindByID finds a league by ID
func (r *GormLeagueRepository) FindByID(id uint64) (*models.League, error) {
	var league models.League
	if err := r.db.Preload("CreatedBy").First(&league, id).Error; err != nil {
		return nil, err
	}
	return &league, nil
}

// FindByInviteCode finds a league by exact invite code
func (r *GormLeagueRepository) FindByInviteCode(code string) (*models.League, error) {
	var league models.League
	if err := r.db.Where("invite_code = ?", code).First(&league).Error; err != nil {
		return nil, err
	}
	return &league, nil
}

// ListPublic lists public leagues with pagination
func (r *GormLeagueRepository) ListPublic(params utils.PaginationParams) ([]models.League, int64, error) {
	var leagues []models.League
	var total int64

	query := r.db.Model(&models.League{}).Where("is_public = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("CreatedBy").
		Order("created_at DESC").
		Scopes(database.Paginate(params)).
		Find(&leagues).Error; err != nil {
		return nil, 0, err
	}

	return leagues, total, nil
}

// AddMember adds a member to a league
func (r *GormLeagueRepository) AddMember(member *models.LeagueMember) error {
	return r.db.Create(member).Error
}

// RemoveMember removes a member from a league
func (r *GormLeagueRepository) RemoveMember(leagueID, userID uint64) error {
	return r.db.Where("league_id = ? AND user_id = ?", leagueID, userID).
		Delete(&models.LeagueMember{}).Error
}

// FindMember finds a specific league membership
func (r *GormLeagueRepository) FindMember(leagueID, userID uint64) (*models.LeagueMember, error) {
	var member models.LeagueMember
	if err := r.db.Where("league_id = ? AND user_id = ?", leagueID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a league
func (r *GormLeagueRepository) ListMembers(leagueID uint64) ([]models.LeagueMember, error) {
	var members []models.LeagueMember
	if err := r.db.Preload("User").
		Where("league_id = ?", leagueID).
		Order("elo DESC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembersByUserID lists all leagues a user is a member of
func (r *GormLeagueRepository) ListMembersByUserID(userID uint64) ([]models.LeagueMember, error) {
	var memberships []models.LeagueMember
	if err := r.db.Preload("League").Preload("League.CreatedBy").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountMembers counts the members of a league
func (r *GormLeagueRepository) CountMembers(leagueID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.LeagueMember{}).
		Where("league_id = ?", leagueID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
