package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountStorage defines account-related database operations.
//
// Lookups by email are case-insensitive. CreateAccount must fail with
// ErrDuplicateEmail when the normalized email is already taken.
type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

// TicketStorage defines reset ticket operations.
//
// TakeTicket must remove and return the ticket in one step so that concurrent
// callers holding the same token observe at most one success.
type TicketStorage interface {
	PutTicket(ctx context.Context, t *ResetTicket) error
	TakeTicket(ctx context.Context, tokenHash string) (*ResetTicket, error)
	DeleteExpiredTickets(ctx context.Context, now time.Time) (int, error)
}

type StorageAdapter interface {
	AccountStorage
	TicketStorage
}

// ============================================
// NOTIFICATION PORT
// ============================================

// ResetNotifier delivers a freshly minted reset token to the account owner.
type ResetNotifier interface {
	SendResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	RequestPasswordReset(ctx context.Context, input ResetRequestInput) (*MessageResult, error)
	ConsumePasswordReset(ctx context.Context, input ResetConsumeInput) (*MessageResult, error)
	Refresh(ctx context.Context, token string) (*AuthResult, error)
	GetSession(ctx context.Context, token string) (*SessionData, error)
	VerifyToken(token string) (*TokenClaims, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, basePath string) error
}
