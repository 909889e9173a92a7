package dto

import (
	"time"

	"github.com/rallyrank/league-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID            uint64    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuthResponse is returned from register and login. Token is empty when the
// account still requires email verification.
type AuthResponse struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}
