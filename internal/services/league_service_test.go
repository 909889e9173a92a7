package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"github.com/rallyrank/league-api/internal/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type leagueTestEnv struct {
	db      *gorm.DB
	service *LeagueService
}

func setupLeagueTestEnv(t *testing.T, superAdminEmails ...string) leagueTestEnv {
	t.Helper()

	db := openTestDB(t)

	leagueRepo := repository.NewLeagueRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	userRepo := repository.NewUserRepository(db)
	service := NewLeagueService(leagueRepo, matchRepo, userRepo, retry.DefaultExecutor(), superAdminEmails)

	return leagueTestEnv{db: db, service: service}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.League{},
		&models.LeagueMember{},
		&models.Match{},
		&models.VerificationCode{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  "hashed",
		EmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLeagueService_CreateLeague_Public(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Office Ladder",
		Description:   "Friday games",
		IsPublic:      true,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	require.Equal(t, "Office Ladder", league.Name)
	require.Nil(t, league.InviteCode)
	require.Equal(t, int64(1), league.MemberCount)
	require.Equal(t, "owner", league.CreatedByUsername)

	var member models.LeagueMember
	require.NoError(t, env.db.Where("league_id = ? AND user_id = ?", league.ID, owner.ID).First(&member).Error)
	require.Equal(t, models.RoleOwner, member.Role)
	require.Equal(t, 1000, member.Elo)
}

func TestLeagueService_CreateLeague_PrivateGetsInviteCode(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Secret Club",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, league.InviteCode)
	require.Len(t, *league.InviteCode, 8)
}

func TestLeagueService_CreateLeague_InvalidName(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")

	_, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "ab",
		IsPublic:      true,
		CreatorUserID: owner.ID,
	})
	require.ErrorIs(t, err, ErrInvalidLeagueName)
}

func TestLeagueService_InviteCodeExhaustion(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")

	first, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "First Private",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	// Force every candidate to collide with the existing league's code.
	env.service.generateInviteCode = func() (string, error) {
		return *first.InviteCode, nil
	}

	_, err = env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Second Private",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.ErrorIs(t, err, ErrInviteCodeExhausted)
}

func TestLeagueService_JoinPublicLeague(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	joiner := createTestUser(t, env.db, "joiner")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Open League",
		IsPublic:      true,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	joined, err := env.service.JoinPublicLeague(context.Background(), league.ID, joiner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), joined.MemberCount)

	// Joining twice is a conflict.
	_, err = env.service.JoinPublicLeague(context.Background(), league.ID, joiner.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestLeagueService_JoinPublicLeague_Errors(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	joiner := createTestUser(t, env.db, "joiner")

	_, err := env.service.JoinPublicLeague(context.Background(), 9999, joiner.ID)
	require.ErrorIs(t, err, ErrLeagueNotFound)

	private, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Private League",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.JoinPublicLeague(context.Background(), private.ID, joiner.ID)
	require.ErrorIs(t, err, ErrLeagueIsPrivate)
}

func TestLeagueService_JoinPrivateLeague(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	joiner := createTestUser(t, env.db, "joiner")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Private League",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.JoinPrivateLeague(context.Background(), "WRONG123", joiner.ID)
	require.ErrorIs(t, err, ErrInvalidInviteCode)

	joined, err := env.service.JoinPrivateLeague(context.Background(), *league.InviteCode, joiner.ID)
	require.NoError(t, err)
	require.Equal(t, league.ID, joined.ID)
}

func TestLeagueService_LeaveLeague(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	member := createTestUser(t, env.db, "member")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Leavers",
		IsPublic:      true,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.JoinPublicLeague(context.Background(), league.ID, member.ID)
	require.NoError(t, err)

	// Owner cannot leave without a prior ownership transfer.
	err = env.service.LeaveLeague(context.Background(), league.ID, owner.ID)
	require.ErrorIs(t, err, ErrOwnerCannotLeave)

	require.NoError(t, env.service.LeaveLeague(context.Background(), league.ID, member.ID))

	err = env.service.LeaveLeague(context.Background(), league.ID, member.ID)
	require.ErrorIs(t, err, ErrMembershipNotFound)
}

func recordTestLeague(t *testing.T, env leagueTestEnv) (league uint64, owner, member *models.User) {
	t.Helper()

	ownerUser := createTestUser(t, env.db, "owner")
	memberUser := createTestUser(t, env.db, "member")

	created, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Match League",
		IsPublic:      true,
		CreatorUserID: ownerUser.ID,
	})
	require.NoError(t, err)

	_, err = env.service.JoinPublicLeague(context.Background(), created.ID, memberUser.ID)
	require.NoError(t, err)

	return created.ID, ownerUser, memberUser
}

func TestLeagueService_RecordMatch(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)

	match, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: owner.ID,
	})
	require.NoError(t, err)

	require.Equal(t, 16, match.WinnerEloChange)
	require.Equal(t, -16, match.LoserEloChange)

	var winner, loser models.LeagueMember
	require.NoError(t, env.db.Where("league_id = ? AND user_id = ?", leagueID, owner.ID).First(&winner).Error)
	require.NoError(t, env.db.Where("league_id = ? AND user_id = ?", leagueID, member.ID).First(&loser).Error)
	require.Equal(t, 1016, winner.Elo)
	require.Equal(t, 984, loser.Elo)

	var count int64
	require.NoError(t, env.db.Model(&models.Match{}).Where("league_id = ?", leagueID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestLeagueService_RecordMatch_Validation(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)
	outsider := createTestUser(t, env.db, "outsider")

	_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    owner.ID,
		ReporterUserID: owner.ID,
	})
	require.ErrorIs(t, err, ErrSamePlayer)

	_, err = env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: outsider.ID,
	})
	require.ErrorIs(t, err, ErrNotLeagueMember)

	_, err = env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   outsider.ID,
		LoserUserID:    member.ID,
		ReporterUserID: owner.ID,
	})
	require.ErrorIs(t, err, ErrWinnerNotMember)

	_, err = env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    outsider.ID,
		ReporterUserID: owner.ID,
	})
	require.ErrorIs(t, err, ErrLoserNotMember)
}

func TestLeagueService_RecordMatch_SuperAdminReporter(t *testing.T) {
	env := setupLeagueTestEnv(t, "admin@example.com")
	leagueID, owner, member := recordTestLeague(t, env)
	admin := createTestUser(t, env.db, "admin")

	_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: admin.ID,
	})
	require.NoError(t, err)
}

// A failure after the elo updates must roll back the whole report: no
// rating change without a match row.
func TestLeagueService_RecordMatch_Atomicity(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)

	// Make the match insert fail mid-transaction.
	require.NoError(t, env.db.Migrator().DropTable(&models.Match{}))

	_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: owner.ID,
	})
	require.Error(t, err)

	var winner, loser models.LeagueMember
	require.NoError(t, env.db.Where("league_id = ? AND user_id = ?", leagueID, owner.ID).First(&winner).Error)
	require.NoError(t, env.db.Where("league_id = ? AND user_id = ?", leagueID, member.ID).First(&loser).Error)
	require.Equal(t, 1000, winner.Elo)
	require.Equal(t, 1000, loser.Elo)
}

func TestLeagueService_GetLeagueDetail_Stats(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)

	// owner wins 4, then loses 2; 6 results total so the trend truncates.
	for i := 0; i < 4; i++ {
		_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
			LeagueID:       leagueID,
			WinnerUserID:   owner.ID,
			LoserUserID:    member.ID,
			ReporterUserID: owner.ID,
		})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
			LeagueID:       leagueID,
			WinnerUserID:   member.ID,
			LoserUserID:    owner.ID,
			ReporterUserID: owner.ID,
		})
		require.NoError(t, err)
	}

	detail, err := env.service.GetLeagueDetail(context.Background(), leagueID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 2, detail.MemberCount)

	byUser := make(map[uint64]int, len(detail.Members))
	for i, m := range detail.Members {
		byUser[m.UserID] = i
	}

	ownerStats := detail.Members[byUser[owner.ID]]
	require.Equal(t, 4, ownerStats.Wins)
	require.Equal(t, 2, ownerStats.Losses)
	require.Equal(t, "LLWWW", ownerStats.Trend)

	memberStats := detail.Members[byUser[member.ID]]
	require.Equal(t, 2, memberStats.Wins)
	require.Equal(t, 4, memberStats.Losses)
	require.Equal(t, "WWLLL", memberStats.Trend)
}

func TestLeagueService_GetLeagueDetail_TrendShortHistory(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)

	_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: owner.ID,
	})
	require.NoError(t, err)

	detail, err := env.service.GetLeagueDetail(context.Background(), leagueID, owner.ID)
	require.NoError(t, err)

	for _, m := range detail.Members {
		switch m.UserID {
		case owner.ID:
			require.Equal(t, "W", m.Trend)
		case member.ID:
			require.Equal(t, "L", m.Trend)
		}
	}
}

func TestLeagueService_GetLeagueDetail_InviteCodeVisibility(t *testing.T) {
	env := setupLeagueTestEnv(t, "admin@example.com")
	owner := createTestUser(t, env.db, "owner")
	outsider := createTestUser(t, env.db, "outsider")
	admin := createTestUser(t, env.db, "admin")

	league, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Hidden Codes",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	asOwner, err := env.service.GetLeagueDetail(context.Background(), league.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, asOwner.InviteCode)

	asOutsider, err := env.service.GetLeagueDetail(context.Background(), league.ID, outsider.ID)
	require.NoError(t, err)
	require.Nil(t, asOutsider.InviteCode)

	asAdmin, err := env.service.GetLeagueDetail(context.Background(), league.ID, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, asAdmin.InviteCode)
}

func TestLeagueService_ListPublicLeagues(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")

	for i := 0; i < 3; i++ {
		_, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
			Name:          fmt.Sprintf("League %d", i),
			IsPublic:      true,
			CreatorUserID: owner.ID,
		})
		require.NoError(t, err)
	}
	_, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Hidden League",
		IsPublic:      false,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)

	leagues, total, err := env.service.ListPublicLeagues(context.Background(), utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, leagues, 3)
	for _, l := range leagues {
		require.Nil(t, l.InviteCode)
	}
}

func TestLeagueService_ListUserLeagues(t *testing.T) {
	env := setupLeagueTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	other := createTestUser(t, env.db, "other")

	created, err := env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Mine",
		IsPublic:      true,
		CreatorUserID: owner.ID,
	})
	require.NoError(t, err)
	_, err = env.service.CreateLeague(context.Background(), CreateLeagueInput{
		Name:          "Theirs",
		IsPublic:      true,
		CreatorUserID: other.ID,
	})
	require.NoError(t, err)

	leagues, err := env.service.ListUserLeagues(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, leagues, 1)
	require.Equal(t, created.ID, leagues[0].ID)
}

func TestLeagueService_ListMatches(t *testing.T) {
	env := setupLeagueTestEnv(t)
	leagueID, owner, member := recordTestLeague(t, env)

	_, err := env.service.RecordMatch(context.Background(), RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   owner.ID,
		LoserUserID:    member.ID,
		ReporterUserID: owner.ID,
	})
	require.NoError(t, err)

	matches, err := env.service.ListMatches(context.Background(), leagueID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "owner", matches[0].WinnerUsername)
	require.Equal(t, "member", matches[0].LoserUsername)
	require.Equal(t, 16, matches[0].WinnerEloChange)
	require.Equal(t, -16, matches[0].LoserEloChange)
}
