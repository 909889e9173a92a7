package constants

// Context keys set by the auth middleware
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
)

// Validation limits
const (
	MinPasswordLength = 8
	MinLeagueNameLen  = 3
	MaxLeagueNameLen  = 100
)

// Pagination defaults
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Rating defaults for new league members
const DefaultElo = 1000
