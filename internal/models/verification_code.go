package models

import "time"

type VerificationCodeType string

const (
	CodeTypeEmailVerify   VerificationCodeType = "EMAIL_VERIFY"
	CodeTypePasswordReset VerificationCodeType = "PASSWORD_RESET"
)

// VerificationCode is a single-use, expiring code. Rows are retained after
// use as an audit trail; superseded codes are marked used, never deleted.
type VerificationCode struct {
	ID        uint64               `gorm:"primarykey" json:"id"`
	UserID    uint64               `gorm:"not null" json:"user_id"`
	Code      string               `gorm:"type:varchar(6);not null" json:"-"`
	Type      VerificationCodeType `gorm:"type:varchar(20);not null" json:"type"`
	ExpiresAt time.Time            `gorm:"not null" json:"expires_at"`
	Used      bool                 `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time            `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ExpiredAt reports whether the code is past its expiry at the given time.
func (v *VerificationCode) ExpiredAt(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
