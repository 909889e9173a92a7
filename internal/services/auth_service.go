package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rallyrank/league-api/internal/constants"
	"github.com/rallyrank/league-api/internal/dto"
	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrAccountExists        = errors.New("account already exists")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrEmailNotVerified     = errors.New("email not verified, please check your inbox")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrUserNotFound         = errors.New("user not found")
	ErrPasswordTooShort     = errors.New("password too short")
)

// AuthService handles registration, login, email verification, and password
// resets. Login is gated on a verified email address.
type AuthService struct {
	userRepo     repository.UserRepository
	verification *VerificationService
	emails       EmailService
	tokens       *TokenService
	retrier      *retry.Executor
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	verification *VerificationService,
	emails EmailService,
	tokens *TokenService,
	retrier *retry.Executor,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		verification: verification,
		emails:       emails,
		tokens:       tokens,
		retrier:      retrier,
	}
}

// RegisterInput represents the required information to create a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new unverified account and emails a verification code.
// Registering an email that already has an unverified account updates the
// password and re-sends the code instead of failing.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*dto.AuthResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.AuthResponse, error) {
		return s.register(input)
	})
}

// LoginInput holds the credentials for authentication. Identifier is a
// username or email address.
type LoginInput struct {
	Identifier string
	Password   string
}

// Login verifies credentials and returns a signed token. Accounts with an
// unverified email are rejected.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*dto.AuthResponse, error) {
	return retry.Do(ctx, s.retrier, func() (*dto.AuthResponse, error) {
		return s.login(input)
	})
}

// VerifyEmail consumes an EMAIL_VERIFY code scoped to the given email and
// marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.verifyEmail(email, code)
	})
}

// VerifyEmailByCode consumes an EMAIL_VERIFY code without knowing the email
// up front (verification links) and marks the owning account verified.
func (s *AuthService) VerifyEmailByCode(ctx context.Context, code string) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.verifyEmailByCode(code)
	})
}

// ResendVerification issues a fresh EMAIL_VERIFY code for an unverified
// account.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.resendVerification(email)
	})
}

// RequestPasswordReset issues and emails a PASSWORD_RESET code. It reports
// success whether or not the email exists, to avoid account enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.requestPasswordReset(email)
	})
}

// ResetPassword consumes a PASSWORD_RESET code and updates the password.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return retry.DoVoid(ctx, s.retrier, func() error {
		return s.resetPassword(email, code, newPassword)
	})
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	return retry.Do(ctx, s.retrier, func() (*models.User, error) {
		user, err := s.userRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		return user, nil
	})
}

func (s *AuthService) register(input RegisterInput) (*dto.AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if existing != nil {
		if existing.EmailVerified {
			return nil, ErrAccountExists
		}

		// Unverified account: refresh the password and re-send the code
		// rather than locking the address out.
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		existing.PasswordHash = string(hash)
		if err := s.userRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}

		s.sendVerificationCode(existing)

		// No token until the email is verified.
		return &dto.AuthResponse{Username: existing.Username, Email: existing.Email}, nil
	}

	taken, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerificationCode(user)

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: token, Username: user.Username, Email: user.Email}, nil
}

// sendVerificationCode issues a fresh code and emails it. Delivery failures
// are logged, never propagated: the code is persisted regardless.
func (s *AuthService) sendVerificationCode(user *models.User) {
	code, err := s.verification.issue(user.ID, models.CodeTypeEmailVerify)
	if err != nil {
		log.Printf("failed to issue verification code for %s: %v", user.Email, err)
		return
	}
	if err := s.emails.SendVerificationEmail(user.Email, code); err != nil {
		log.Printf("failed to send verification email to %s: %v", user.Email, err)
	}
}

func (s *AuthService) login(input LoginInput) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByIdentifier(input.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: token, Username: user.Username, Email: user.Email}, nil
}

func (s *AuthService) verifyEmail(email, code string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.verification.consume(code, models.CodeTypeEmailVerify, &user.ID); err != nil {
		return err
	}

	user.EmailVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	log.Printf("email verified for user %s", user.Username)
	return nil
}

func (s *AuthService) verifyEmailByCode(code string) error {
	userID, err := s.verification.consume(code, models.CodeTypeEmailVerify, nil)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.EmailVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	log.Printf("email verified for user %s via code link", user.Username)
	return nil
}

func (s *AuthService) resendVerification(email string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	s.sendVerificationCode(user)
	return nil
}

func (s *AuthService) requestPasswordReset(email string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Don't reveal whether the account exists.
			log.Printf("password reset requested for unknown email %q", email)
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	code, err := s.verification.issue(user.ID, models.CodeTypePasswordReset)
	if err != nil {
		return err
	}

	if err := s.emails.SendPasswordResetEmail(user.Email, code); err != nil {
		log.Printf("failed to send password reset email to %s: %v", user.Email, err)
	}
	return nil
}

func (s *AuthService) resetPassword(email, code, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.verification.consume(code, models.CodeTypePasswordReset, &user.ID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	log.Printf("password reset for user %s", user.Username)
	return nil
}
