package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rallyrank/league-api/internal/models"
	"github.com/rallyrank/league-api/internal/repository"
	"github.com/rallyrank/league-api/internal/retry"
	"github.com/rallyrank/league-api/internal/utils"
	"gorm.io/gorm"
)

// codeTTL bounds the lifetime of every verification code.
const codeTTL = 15 * time.Minute

var (
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpiredCode = errors.New("verification code has expired")
)

// VerificationService manages the lifecycle of single-use, expiring codes.
// A code is live from issue until it is consumed, superseded by a newer
// issue of the same type, or passes its expiry.
type VerificationService struct {
	codeRepo repository.VerificationCodeRepository
	retrier  *retry.Executor

	// nowFunc is swapped in tests to drive expiry deterministically.
	nowFunc func() time.Time
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(codeRepo repository.VerificationCodeRepository, retrier *retry.Executor) *VerificationService {
	return &VerificationService{
		codeRepo: codeRepo,
		retrier:  retrier,
		nowFunc:  time.Now,
	}
}

// Issue invalidates every live code of the given type for the user and
// persists a fresh 6-digit code expiring in 15 minutes. The caller is
// responsible for delivering the returned code.
func (s *VerificationService) Issue(ctx context.Context, userID uint64, codeType models.VerificationCodeType) (string, error) {
	return retry.Do(ctx, s.retrier, func() (string, error) {
		return s.issue(userID, codeType)
	})
}

// Consume marks the code used and returns the owning user id. The caller
// applies the domain effect (verify email, permit password change); the code
// store never mutates user state.
func (s *VerificationService) Consume(ctx context.Context, code string, codeType models.VerificationCodeType, expectedUserID *uint64) (uint64, error) {
	return retry.Do(ctx, s.retrier, func() (uint64, error) {
		return s.consume(code, codeType, expectedUserID)
	})
}

func (s *VerificationService) issue(userID uint64, codeType models.VerificationCodeType) (string, error) {
	code, err := utils.GenerateVerificationCode()
	if err != nil {
		return "", err
	}

	vc := &models.VerificationCode{
		UserID:    userID,
		Code:      code,
		Type:      codeType,
		ExpiresAt: s.nowFunc().Add(codeTTL),
	}
	if err := s.codeRepo.IssueExclusive(vc); err != nil {
		return "", fmt.Errorf("failed to issue verification code: %w", err)
	}

	return code, nil
}

func (s *VerificationService) consume(code string, codeType models.VerificationCodeType, expectedUserID *uint64) (uint64, error) {
	vc, err := s.codeRepo.FindActive(code, codeType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidCode
		}
		return 0, fmt.Errorf("failed to look up verification code: %w", err)
	}

	// Reject codes owned by someone else even when the random value
	// collides across accounts.
	if expectedUserID != nil && vc.UserID != *expectedUserID {
		return 0, ErrInvalidCode
	}

	if vc.ExpiredAt(s.nowFunc()) {
		return 0, ErrExpiredCode
	}

	if err := s.codeRepo.MarkUsed(vc); err != nil {
		return 0, fmt.Errorf("failed to mark verification code used: %w", err)
	}

	return vc.UserID, nil
}
