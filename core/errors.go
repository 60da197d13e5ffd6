package core

import "errors"

// Account errors
var (
	ErrUserNotFound       = errors.New("user not found")              // 404 Not Found
	ErrDuplicateEmail     = errors.New("email is already registered") // 409 Conflict
	ErrInvalidCredentials = errors.New("invalid email or password")   // 401 Unauthorized
)

// Token errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'")
	ErrInvalidToken      = errors.New("invalid session token") // 401, signature or format
	ErrTokenExpired      = errors.New("session token expired") // 401, eligible for refresh
	ErrForbidden         = errors.New("insufficient role")     // 403
)

// Reset ticket errors
var (
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token") // 400
	ErrTicketNotFound        = errors.New("reset ticket not found")
)

// ErrValidation wraps client input errors. // 400
var ErrValidation = errors.New("validation failed")

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required")
	ErrHTTPAdapterRequired = errors.New("http adapter is required")
	ErrSecretRequired      = errors.New("secret is required")
	ErrSecretTooShort      = errors.New("secret too short")
)
