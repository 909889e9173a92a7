package repository

import (
	"fmt"

	"github.com/rallyrank/league-api/internal/models"
	"gorm.io/gorm"
)

// GormVerificationCodeRepository is a GORM implementation of VerificationCodeRepository
type GormVerificationCodeRepository struct {
	db *gorm.DB
}

// NewVerificationCodeRepository creates a new VerificationCodeRepository
func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

// IssueExclusive marks every unused code of the same user and type as used,
// then creates the new code, within a single transaction. At most one code
// per (user, type) is live at any time.
func (r *GormVerificationCodeRepository) IssueExclusive(code *models.VerificationCode) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VerificationCode{}).
			Where("user_id = ? AND type = ? AND used = ?", code.UserID, code.Type, false).
			Update("used", true).Error; err != nil {
			return fmt.Errorf("failed to invalidate prior codes: %w", err)
		}

		if err := tx.Create(code).Error; err != nil {
			return fmt.Errorf("failed to create verification code: %w", err)
		}

		return nil
	})
}

// FindActive finds an unused code by (code, type)
func (r *GormVerificationCodeRepository) FindActive(code string, codeType models.VerificationCodeType) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	if err := r.db.Where("code = ? AND type = ? AND used = ?", code, codeType, false).
		First(&vc).Error; err != nil {
		return nil, err
	}
	return &vc, nil
}

// MarkUsed marks a code as used
func (r *GormVerificationCodeRepository) MarkUsed(code *models.VerificationCode) error {
	code.Used = true
	return r.db.Model(code).Update("used", true).Error
}
