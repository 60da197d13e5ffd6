package medauth

import (
	"context"
	"fmt"
	"time"

	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
	"github.com/lborres/medauth/services"
)

// interfaces
type (
	AccountStorage = core.AccountStorage
	TicketStorage  = core.TicketStorage
	StorageAdapter = core.StorageAdapter

	HTTPAdapter   = core.HTTPAdapter
	AuthHandler   = core.AuthHandler
	ResetNotifier = core.ResetNotifier

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Config = core.Config
	Roles  = core.Roles
)

type (
	User          = core.User
	Account       = core.Account
	TokenClaims   = core.TokenClaims
	AuthResult    = core.AuthResult
	SessionData   = core.SessionData
	MessageResult = core.MessageResult
	ResetTicket   = core.ResetTicket
)

const (
	defaultBasePath  = "/api/auth"
	defaultSecretLen = 32
)

const NoRefreshGrace = core.NoRefreshGrace

const (
	RoleDoctor     = core.RoleDoctor
	RoleAdmin      = core.RoleAdmin
	RoleResearcher = core.RoleResearcher
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2      = crypto.NewArgon2
	NewLogNotifier = services.NewLogNotifier
	DefaultRoles   = core.DefaultRoles
	HasAnyRole     = core.HasAnyRole
)

var (
	ErrUserNotFound       = core.ErrUserNotFound
	ErrDuplicateEmail     = core.ErrDuplicateEmail
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrValidation         = core.ErrValidation
)

var (
	ErrMissingAuthHeader     = core.ErrMissingAuthHeader
	ErrInvalidAuthHeader     = core.ErrInvalidAuthHeader
	ErrInvalidToken          = core.ErrInvalidToken
	ErrTokenExpired          = core.ErrTokenExpired
	ErrForbidden             = core.ErrForbidden
	ErrInvalidOrExpiredToken = core.ErrInvalidOrExpiredToken
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// Auth is a configured authentication system with its routes mounted.
type Auth struct {
	*services.AuthService

	Resets   *services.ResetManager
	Tokens   *services.TokenIssuer
	BasePath string
}

func New(config Config) (*Auth, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	roles := config.Roles
	if len(roles) == 0 {
		roles = core.DefaultRoles()
	}

	tokenTTL := config.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = core.DefaultTokenTTL
	}

	refreshGrace := config.RefreshGrace
	if refreshGrace == 0 {
		refreshGrace = core.DefaultRefreshGrace
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	credentials := services.NewCredentialStore(config.Storage, passwordHasher)
	tokens := services.NewTokenIssuer(config.Secret, tokenTTL, refreshGrace, now)
	resets := services.NewResetManager(config.Storage, credentials, services.ResetConfig{
		TTL:      config.ResetTTL,
		Notifier: config.Notifier,
		Logger:   config.Logger,
		Now:      now,
	})

	auth := &Auth{
		AuthService: services.NewAuthService(credentials, tokens, resets, roles),
		Resets:      resets,
		Tokens:      tokens,
		BasePath:    basePath,
	}

	if err := config.HTTP.RegisterRoutes(auth, basePath); err != nil {
		return nil, err
	}

	return auth, nil
}

// RunTicketPurger removes expired reset tickets every interval until ctx ends.
func (a *Auth) RunTicketPurger(ctx context.Context, interval time.Duration) {
	a.Resets.RunPurger(ctx, interval)
}
