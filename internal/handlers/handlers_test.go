package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rallyrank/league-api/internal/middleware"
	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"github.com/rallyrank/league-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type capturedEmail struct {
	to   string
	code string
}

// captureEmailService records codes instead of sending mail.
type captureEmailService struct {
	verifications []capturedEmail
	resets        []capturedEmail
}

func (f *captureEmailService) SendVerificationEmail(to, code string) error {
	f.verifications = append(f.verifications, capturedEmail{to: to, code: code})
	return nil
}

func (f *captureEmailService) SendPasswordResetEmail(to, code string) error {
	f.resets = append(f.resets, capturedEmail{to: to, code: code})
	return nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	emails *captureEmailService
}

// setupTestServer wires the full stack against an in-memory database,
// mirroring the production route table.
func setupTestServer(t *testing.T, superAdminEmails ...string) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

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

	userRepo := repository.NewUserRepository(db)
	leagueRepo := repository.NewLeagueRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)

	retrier := retry.DefaultExecutor()
	emails := &captureEmailService{}
	tokens := services.NewTokenService("test-secret")
	verification := services.NewVerificationService(codeRepo, retrier)
	authService := services.NewAuthService(userRepo, verification, emails, tokens, retrier)
	leagueService := services.NewLeagueService(leagueRepo, matchRepo, userRepo, retrier, superAdminEmails)

	authHandler := NewAuthHandler(authService)
	leagueHandler := NewLeagueHandler(leagueService)

	r := gin.New()
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/verify-email", authHandler.VerifyEmail)
	auth.POST("/verify-email-by-code", authHandler.VerifyEmailByCode)
	auth.POST("/resend-verification", authHandler.ResendVerification)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", middleware.RequireAuth(tokens), authHandler.GetCurrentUser)

	leagues := api.Group("/leagues")
	leagues.Use(middleware.RequireAuth(tokens))
	leagues.POST("", leagueHandler.CreateLeague)
	leagues.GET("/public", leagueHandler.ListPublicLeagues)
	leagues.GET("/mine", leagueHandler.ListMyLeagues)
	leagues.POST("/join", leagueHandler.JoinPrivateLeague)
	leagues.GET("/:id", leagueHandler.GetLeague)
	leagues.POST("/:id/join", leagueHandler.JoinPublicLeague)
	leagues.POST("/:id/leave", leagueHandler.LeaveLeague)
	leagues.GET("/:id/matches", leagueHandler.ListMatches)
	leagues.POST("/:id/matches", leagueHandler.RecordMatch)

	return &testServer{router: r, db: db, emails: emails}
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates a verified account and returns its token.
func (s *testServer) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	email := username + "@example.com"

	w := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NotEmpty(t, s.emails.verifications)
	code := s.emails.verifications[len(s.emails.verifications)-1].code

	w = s.request(t, http.MethodPost, "/api/auth/verify-email", "", gin.H{
		"email": email,
		"code":  code,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": username,
		"password":   "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	token, ok := decodeBody(t, w)["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}
