package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rallyrank/league-api/internal/constants"
	apierrors "github.com/rallyrank/league-api/internal/errors"
	"github.com/rallyrank/league-api/internal/services"
)

// RequireAuth validates the Bearer token and stores the authenticated
// identity in the request context.
func RequireAuth(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apierrors.Unauthorized(c, "Missing or invalid Authorization header")
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
