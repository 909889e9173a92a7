package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsTransient reports whether err, or any cause in its chain, indicates a
// connection, pool, or timeout condition that is worth retrying. Everything
// else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// SQLSTATE class 08 is the SQL standard "connection exception" class.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") {
		return true
	}

	for cause := err; cause != nil; cause = errors.Unwrap(cause) {
		if hasTransientMessage(cause.Error()) {
			return true
		}
	}
	return false
}

func hasTransientMessage(msg string) bool {
	m := strings.ToLower(msg)

	// Connection pool wording used by pgx and other pool implementations.
	if strings.Contains(m, "pool") &&
		(strings.Contains(m, "exhausted") ||
			strings.Contains(m, "not available") ||
			strings.Contains(m, "timed out")) {
		return true
	}

	if !strings.Contains(m, "connection") {
		return false
	}
	for _, w := range []string{"refused", "timeout", "timed out", "unavailable", "closed", "reset", "failed"} {
		if strings.Contains(m, w) {
			return true
		}
	}
	return false
}
