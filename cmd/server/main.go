package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rallyrank/league-api/internal/config"
	"github.com/rallyrank/league-api/internal/database"
	"github.com/rallyrank/league-api/internal/handlers"
	"github.com/rallyrank/league-api/internal/middleware"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"github.com/rallyrank/league-api/internal/services"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	gin.SetMode(cfg.GinMode)

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.MigrateDatabase(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	db := database.GetDB()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	leagueRepo := repository.NewLeagueRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)

	// Services
	retrier := retry.DefaultExecutor()
	tokenService := services.NewTokenService(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail, cfg.AppName)
	verificationService := services.NewVerificationService(codeRepo, retrier)
	authService := services.NewAuthService(userRepo, verificationService, emailService, tokenService, retrier)
	leagueService := services.NewLeagueService(leagueRepo, matchRepo, userRepo, retrier, cfg.SuperAdminEmails)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	leagueHandler := handlers.NewLeagueHandler(leagueService)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "League API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.POST("/verify-email-by-code", authHandler.VerifyEmailByCode)
			auth.POST("/resend-verification", authHandler.ResendVerification)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/me", middleware.RequireAuth(tokenService), authHandler.GetCurrentUser)
		}

		// League routes (protected)
		leagues := api.Group("/leagues")
		leagues.Use(middleware.RequireAuth(tokenService))
		{
			leagues.POST("", leagueHandler.CreateLeague)
			leagues.GET("/public", leagueHandler.ListPublicLeagues)
			leagues.GET("/mine", leagueHandler.ListMyLeagues)
			leagues.POST("/join", leagueHandler.JoinPrivateLeague)
			leagues.GET("/:id", leagueHandler.GetLeague)
			leagues.POST("/:id/join", leagueHandler.JoinPublicLeague)
			leagues.POST("/:id/leave", leagueHandler.LeaveLeague)
			leagues.GET("/:id/matches", leagueHandler.ListMatches)
			leagues.POST("/:id/matches", leagueHandler.RecordMatch)
		}
	}

	addr := ":" + cfg.ServerPort
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
