package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rallyrank/league-api/internal/constants"
	"github.com/rallyrank/league-api/internal/dto"
	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/rating"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"github.com/rallyrank/league-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrLeagueNotFound      = errors.New("league not found")
	ErrInvalidLeagueName   = errors.New("league name must be between 3 and 100 characters")
	ErrInviteCodeExhausted = errors.New("could not allocate a unique invite code")
	ErrLeagueIsPrivate     = errors.New("this league is private, use an invite code to join")
	ErrInvalidInviteCode   = errors.New("invalid invite code")
	ErrAlreadyMember       = errors.New("you are already a member of this league")
	ErrMembershipNotFound  = errors.New("you are not a member of this league")
	ErrOwnerCannotLeave    = errors.New("league owner cannot leave, transfer ownership or delete the league")
	ErrNotLeagueMember     = errors.New("you must be a member of the league to record matches")
	ErrWinnerNotMember     = errors.New("winner is not in this league")
	ErrLoserNotMember      = errors.New("loser is not in this league")
	ErrSamePlayer          = errors.New("winner and loser cannot be the same person")
)

// maxInviteCodeAttempts bounds invite code regeneration under collisions.
const maxInviteCodeAttempts = 5

// trendLength is the number of recent results shown per member.
const trendLength = 5

// LeagueService owns league membership state, invite codes, and match
// recording. Every public operation runs behind the retry executor.
type LeagueService struct {
	leagueRepo repository.LeagueRepository
	matchRepo  repository.MatchRepository
	userRepo   repository.UserRepository
	retrier    *retry.Executor

	// superAdmins may record matches without membership and always see
	// invite codes. Injected from configuration, normalized to lower case.
	superAdmins map[string]struct{}

	// generateInviteCode is swapped in tests to force collisions.
	generateInviteCode func() (string, error)
}

// NewLeagueService creates a new LeagueService.
func NewLeagueService(
	leagueRepo repository.LeagueRepository,
	matchRepo repository.MatchRepository,
	userRepo repository.UserRepository,
	retrier *retry.Executor,
	superAdminEmails []string,
) *LeagueService {
	admins := make(map[string]struct{}, len(superAdminEmails))
	for _, email := range superAdminEmails {
		admins[strings.ToLower(email)] = struct{}{}
	}

	return &LeagueService{
		leagueRepo:         leagueRepo,
		matchRepo:          matchRepo,
		userRepo:           userRepo,
		retrier:            retrier,
		superAdmins:        admins,
		generateInviteCode: utils.GenerateInviteCode,
	}
}

func (s *LeagueService) isSuperAdmin(user *models.User) bool {
	_, ok := s.superAdmins[strings.ToLower(user.Email)]
	return ok
}

// CreateLeagueInput represents parameters to create a new league.
type CreateLeagueInput struct {
	Name          string
	Description   string
	IsPublic      bool
	CreatorUserID uint64
}

// CreateLeague creates a league and its OWNER membership in one transaction.
// Private leagues get a unique invite code.
func (s *LeagueService) CreateLeague(ctx context.Context, input CreateLeagueInput) (*dto.LeagueResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.LeagueResponse, error) {
		return s.createLeague(input)
	})
}

// JoinPublicLeague adds the user as a MEMBER of a public league.
func (s *LeagueService) JoinPublicLeague(ctx context.Context, leagueID, userID uint64) (*dto.LeagueResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.LeagueResponse, error) {
		return s.joinPublicLeague(leagueID, userID)
	})
}

// JoinPrivateLeague adds the user as a MEMBER of the league matching the
// invite code.
func (s *LeagueService) JoinPrivateLeague(ctx context.Context, inviteCode string, userID uint64) (*dto.LeagueResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.LeagueResponse, error) {
		return s.joinPrivateLeague(inviteCode, userID)
	})
}

// LeaveLeague removes the user's membership. Owners cannot leave.
func (s *LeagueService) LeaveLeague(ctx context.Context, leagueID, userID uint64) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.leaveLeague(leagueID, userID)
	})
}

// RecordMatchInput represents a reported match result.
type RecordMatchInput struct {
	LeagueID       uint64
	WinnerUserID   uint64
	LoserUserID    uint64
	ReporterUserID uint64
}

// RecordMatch validates the report, computes elo deltas from the players'
// current ratings, and applies both membership updates plus the match record
// atomically.
func (s *LeagueService) RecordMatch(ctx context.Context, input RecordMatchInput) (*models.Match, error) {
	return retry.Do(ctx, s.retrier, func() (*models.Match, error) {
		return s.recordMatch(input)
	})
}

// GetLeagueDetail aggregates current standings with per-member win/loss
// counts and recent-result trends.
func (s *LeagueService) GetLeagueDetail(ctx context.Context, leagueID, requestingUserID uint64) (*dto.LeagueDetailResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.LeagueDetailResponse, error) {
		return s.getLeagueDetail(leagueID, requestingUserID)
	})
}

// ListPublicLeagues lists public leagues with pagination.
func (s *LeagueService) ListPublicLeagues(ctx context.Context, params utils.PaginationParams) ([]dto.LeagueResponse, int64, error) {
	type page struct {
		leagues []dto.LeagueResponse
		total   int64
	}
	p, err := retry.Do(ctx, s.retrier, func() (page, error) {
		leagues, total, err := s.listPublicLeagues(params)
		return page{leagues, total}, err
	})
	return p.leagues, p.total, err
}

// ListUserLeagues lists the leagues the user belongs to.
func (s *LeagueService) ListUserLeagues(ctx context.Context, userID uint64) ([]dto.LeagueResponse, error) {
	return retry.Do(ctx, s.retrier, func() ([]dto.LeagueResponse, error) {
		return s.listUserLeagues(userID)
	})
}

// ListMatches lists a league's matches, most recent first.
func (s *LeagueService) ListMatches(ctx context.Context, leagueID uint64) ([]dto.MatchResponse, error) {
	return retry.Do(ctx, s.retrier, func() ([]dto.MatchResponse, error) {
		return s.listMatches(leagueID)
	})
}

func (s *LeagueService) createLeague(input CreateLeagueInput) (*dto.LeagueResponse, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < constants.MinLeagueNameLen || len(name) > constants.MaxLeagueNameLen {
		return nil, ErrInvalidLeagueName
	}

	creator, err := s.userRepo.FindByID(input.CreatorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find creator: %w", err)
	}

	league := &models.League{
		Name:        name,
		Description: input.Description,
		IsPublic:    input.IsPublic,
		CreatedByID: creator.ID,
	}

	if !input.IsPublic {
		code, err := s.allocateInviteCode()
		if err != nil {
			return nil, err
		}
		league.InviteCode = &code
	}

	owner := &models.LeagueMember{
		UserID:   creator.ID,
		Role:     models.RoleOwner,
		Elo:      constants.DefaultElo,
		JoinedAt: time.Now(),
	}

	if err := s.leagueRepo.CreateWithOwner(league, owner); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	league.CreatedBy = *creator
	resp := dto.ToLeagueResponse(*league, 1)
	return &resp, nil
}

// allocateInviteCode draws random codes until one is free, bounded so a
// pathological collision rate cannot loop forever.
func (s *LeagueService) allocateInviteCode() (string, error) {
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := s.generateInviteCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}

		_, err = s.leagueRepo.FindByInviteCode(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
	}
	return "", ErrInviteCodeExhausted
}

func (s *LeagueService) joinPublicLeague(leagueID, userID uint64) (*dto.LeagueResponse, error) {
	league, err := s.leagueRepo.FindByID(leagueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to find league: %w", err)
	}

	if !league.IsPublic {
		return nil, ErrLeagueIsPrivate
	}

	return s.addMember(league, userID)
}

func (s *LeagueService) joinPrivateLeague(inviteCode string, userID uint64) (*dto.LeagueResponse, error) {
	league, err := s.leagueRepo.FindByInviteCode(inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find league by invite code: %w", err)
	}

	return s.addMember(league, userID)
}

func (s *LeagueService) addMember(league *models.League, userID uint64) (*dto.LeagueResponse, error) {
	if _, err := s.leagueRepo.FindMember(league.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.LeagueMember{
		LeagueID: league.ID,
		UserID:   userID,
		Role:     models.RoleMember,
		Elo:      constants.DefaultElo,
		JoinedAt: time.Now(),
	}
	if err := s.leagueRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to league: %w", err)
	}

	count, err := s.leagueRepo.CountMembers(league.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	if league.CreatedBy.ID == 0 {
		if full, err := s.leagueRepo.FindByID(league.ID); err == nil {
			league = full
		}
	}

	resp := dto.ToLeagueResponse(*league, count)
	return &resp, nil
}

func (s *LeagueService) leaveLeague(leagueID, userID uint64) error {
	member, err := s.leagueRepo.FindMember(leagueID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if member.Role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}

	if err := s.leagueRepo.RemoveMember(leagueID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

func (s *LeagueService) recordMatch(input RecordMatchInput) (*models.Match, error) {
	if input.WinnerUserID == input.LoserUserID {
		return nil, ErrSamePlayer
	}

	reporter, err := s.userRepo.FindByID(input.ReporterUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find reporter: %w", err)
	}

	if _, err := s.leagueRepo.FindMember(input.LeagueID, reporter.ID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to verify reporter membership: %w", err)
		}
		if !s.isSuperAdmin(reporter) {
			return nil, ErrNotLeagueMember
		}
	}

	match, err := s.matchRepo.RecordMatch(input.LeagueID, input.WinnerUserID, input.LoserUserID,
		func(winnerElo, loserElo int) (int, int) {
			return rating.ComputeEloUpdate(winnerElo, loserElo, rating.DefaultKFactor)
		})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWinnerNotInLeague):
			return nil, ErrWinnerNotMember
		case errors.Is(err, repository.ErrLoserNotInLeague):
			return nil, ErrLoserNotMember
		default:
			return nil, fmt.Errorf("failed to record match: %w", err)
		}
	}

	return match, nil
}

type memberStats struct {
	wins   int
	losses int
	trend  []byte
}

func (st *memberStats) addTrend(result byte) {
	if len(st.trend) < trendLength {
		st.trend = append(st.trend, result)
	}
}

func (s *LeagueService) getLeagueDetail(leagueID, requestingUserID uint64) (*dto.LeagueDetailResponse, error) {
	league, err := s.leagueRepo.FindByID(leagueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to find league: %w", err)
	}

	requester, err := s.userRepo.FindByID(requestingUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	members, err := s.leagueRepo.ListMembers(leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	// Matches arrive most recent first, so the first trendLength results
	// seen per member are exactly their trend.
	matches, err := s.matchRepo.ListByLeague(leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	stats := make(map[uint64]*memberStats, len(members))
	for _, member := range members {
		stats[member.UserID] = &memberStats{}
	}

	for _, match := range matches {
		if st, ok := stats[match.WinnerID]; ok {
			st.wins++
			st.addTrend('W')
		}
		if st, ok := stats[match.LoserID]; ok {
			st.losses++
			st.addTrend('L')
		}
	}

	isMember := false
	memberResponses := make([]dto.LeagueMemberResponse, len(members))
	for i, member := range members {
		if member.UserID == requester.ID {
			isMember = true
		}

		st := stats[member.UserID]
		memberResponses[i] = dto.LeagueMemberResponse{
			UserID:   member.UserID,
			Username: member.User.Username,
			Role:     member.Role,
			Elo:      member.Elo,
			JoinedAt: member.JoinedAt,
			Wins:     st.wins,
			Losses:   st.losses,
			Trend:    string(st.trend),
		}
	}

	resp := &dto.LeagueDetailResponse{
		ID:                league.ID,
		Name:              league.Name,
		Description:       league.Description,
		IsPublic:          league.IsPublic,
		CreatedByUsername: league.CreatedBy.Username,
		CreatedAt:         league.CreatedAt,
		MemberCount:       len(members),
		Members:           memberResponses,
	}

	if isMember || league.CreatedByID == requester.ID || s.isSuperAdmin(requester) {
		resp.InviteCode = league.InviteCode
	}

	return resp, nil
}

func (s *LeagueService) listPublicLeagues(params utils.PaginationParams) ([]dto.LeagueResponse, int64, error) {
	leagues, total, err := s.leagueRepo.ListPublic(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list public leagues: %w", err)
	}

	responses := make([]dto.LeagueResponse, len(leagues))
	for i, league := range leagues {
		count, err := s.leagueRepo.CountMembers(league.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count members: %w", err)
		}
		responses[i] = dto.ToLeagueResponse(league, count)
		// Invite codes are never exposed in public listings.
		responses[i].InviteCode = nil
	}

	return responses, total, nil
}

func (s *LeagueService) listUserLeagues(userID uint64) ([]dto.LeagueResponse, error) {
	memberships, err := s.leagueRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}

	responses := make([]dto.LeagueResponse, len(memberships))
	for i, membership := range memberships {
		count, err := s.leagueRepo.CountMembers(membership.LeagueID)
		if err != nil {
			return nil, fmt.Errorf("failed to count members: %w", err)
		}
		responses[i] = dto.ToLeagueResponse(membership.League, count)
	}

	return responses, nil
}

func (s *LeagueService) listMatches(leagueID uint64) ([]dto.MatchResponse, error) {
	matches, err := s.matchRepo.ListByLeague(leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	responses := make([]dto.MatchResponse, len(matches))
	for i, match := range matches {
		responses[i] = dto.ToMatchResponse(match)
	}
	return responses, nil
}
