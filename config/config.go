// Package config handles configuration for the medauth server binary,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lborres/medauth/core"
)

// Config holds runtime settings for the medauth server.
//
// Fields:
//   - Addr: bind address for the HTTP listener.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - Secret: HMAC key for session tokens, at least 32 characters.
//   - TokenTTL / ResetTTL / RefreshGrace: token and reset ticket lifetimes.
//     A RefreshGrace of zero disables refreshing expired tokens.
//   - PurgeInterval: how often expired reset tickets are removed.
//   - SeedDemo: register the demo accounts at startup.
//   - Migrate: apply database migrations at startup (pgx only).
type Config struct {
	Addr          string
	DatabaseDSN   string
	Secret        string
	BasePath      string
	TokenTTL      time.Duration
	ResetTTL      time.Duration
	RefreshGrace  time.Duration
	PurgeInterval time.Duration
	LogLevel      string
	SeedDemo      bool
	Migrate       bool
}

// LoadDefaults populates Config with development defaults. There is no
// default secret.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabaseDSN = ""
	c.Secret = ""
	c.BasePath = "/api/auth"
	c.TokenTTL = core.DefaultTokenTTL
	c.ResetTTL = core.DefaultResetTTL
	c.RefreshGrace = core.DefaultRefreshGrace
	c.PurgeInterval = 10 * time.Minute
	c.LogLevel = "info"
	c.SeedDemo = false
	c.Migrate = true
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file (-c / -config) and finally from command-line flags.
// args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AuthRefreshGrace is RefreshGrace in the form core.Config expects, where
// zero means the default.
func (c *Config) AuthRefreshGrace() time.Duration {
	if c.RefreshGrace == 0 {
		return core.NoRefreshGrace
	}
	return c.RefreshGrace
}

// InMemory reports whether no database is configured.
func (c *Config) InMemory() bool {
	return strings.TrimSpace(c.DatabaseDSN) == ""
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, core.ErrSecretRequired)
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.RefreshGrace < 0 {
		errs = append(errs, errors.New("refresh grace must not be negative"))
	}
	if c.PurgeInterval <= 0 {
		errs = append(errs, errors.New("purge interval must be positive"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
