package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrUnauthenticated is returned when no valid session is presented
	ErrUnauthenticated = goerr.New("unauthenticated")

	// ErrProfileRequired is returned when the account has not signed up yet
	ErrProfileRequired = goerr.New("user profile is required")

	// ErrAccessDenied is returned when the caller may not touch the resource
	ErrAccessDenied = goerr.New("access denied")
)

// Context keys for error values
const (
	AccountIDKey = "account_id"
	RoleKey      = "role"
)
