package core

import (
	"log/slog"
	"time"

	"github.com/lborres/medauth/pkg/crypto"
)

const (
	DefaultTokenTTL     = 24 * time.Hour
	DefaultResetTTL     = time.Hour
	DefaultRefreshGrace = 7 * 24 * time.Hour

	// NoRefreshGrace disables refreshing expired tokens.
	NoRefreshGrace time.Duration = -1
)

type Config struct {
	// Secret is the HMAC key shared by issuance and verification.
	Secret string

	Storage StorageAdapter

	HTTP HTTPAdapter

	// Optional config
	PasswordHasher crypto.PasswordHandler
	Notifier       ResetNotifier
	Logger         *slog.Logger
	Roles          Roles
	TokenTTL       time.Duration
	ResetTTL       time.Duration
	// RefreshGrace is how long after expiry a token may still be refreshed.
	// Zero selects DefaultRefreshGrace; a negative value disables the window.
	RefreshGrace   time.Duration
	Now            func() time.Time
	BasePath       string
}
