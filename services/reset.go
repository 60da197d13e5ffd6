package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
)

// ResetManager runs the password reset ticket lifecycle: mint, deliver,
// consume once, expire.
type ResetManager struct {
	tickets     core.TicketStorage
	credentials *CredentialStore
	notifier    core.ResetNotifier
	logger      *slog.Logger
	ttl         time.Duration
	now         func() time.Time
	newToken    func() (string, error)
}

type ResetConfig struct {
	TTL      time.Duration
	Notifier core.ResetNotifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewResetManager(tickets core.TicketStorage, credentials *CredentialStore, cfg ResetConfig) *ResetManager {
	if cfg.TTL <= 0 {
		cfg.TTL = core.DefaultResetTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewLogNotifier(cfg.Logger)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ResetManager{
		tickets:     tickets,
		credentials: credentials,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		ttl:         cfg.TTL,
		now:         cfg.Now,
		newToken:    crypto.NewResetToken,
	}
}

// Request mints a ticket when email belongs to an account. The returned
// message is identical whether or not it does.
func (rm *ResetManager) Request(ctx context.Context, email string) (string, error) {
	acc, err := rm.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.MsgResetRequested, nil
		}
		return "", err
	}

	token, err := rm.newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := rm.now()
	ticket := &core.ResetTicket{
		TokenHash: crypto.HashToken(token),
		Email:     acc.Email,
		ExpiresAt: now.Add(rm.ttl),
		CreatedAt: now,
	}
	if err := rm.tickets.PutTicket(ctx, ticket); err != nil {
		return "", fmt.Errorf("failed to store reset ticket: %w", err)
	}

	if err := rm.notifier.SendResetToken(ctx, acc.Email, token, ticket.ExpiresAt); err != nil {
		// The ticket stays valid; the user can ask again.
		rm.logger.ErrorContext(ctx, "reset token delivery failed", slog.String("error", err.Error()))
	}

	return core.MsgResetRequested, nil
}

// Consume redeems token for a new password. The ticket is removed before
// anything else so it can never be replayed, even when a later step fails.
func (rm *ResetManager) Consume(ctx context.Context, token, newPassword string) (string, error) {
	if token == "" {
		return "", core.ErrInvalidOrExpiredToken
	}

	// Step 1: Take the ticket
	ticket, err := rm.tickets.TakeTicket(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, core.ErrTicketNotFound) {
			return "", core.ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("failed to take reset ticket: %w", err)
	}
	if !crypto.TokenMatchesHash(token, ticket.TokenHash) || ticket.Expired(rm.now()) {
		return "", core.ErrInvalidOrExpiredToken
	}

	// Step 2: Resolve the account
	if _, err := rm.credentials.FindByEmail(ctx, ticket.Email); err != nil {
		return "", err
	}

	// Step 3: Replace the secret
	if err := rm.credentials.UpdateSecret(ctx, ticket.Email, newPassword); err != nil {
		return "", err
	}

	return core.MsgPasswordReset, nil
}

// PurgeExpired removes tickets past their expiry.
func (rm *ResetManager) PurgeExpired(ctx context.Context) (int, error) {
	return rm.tickets.DeleteExpiredTickets(ctx, rm.now())
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (rm *ResetManager) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := rm.PurgeExpired(ctx)
			if err != nil {
				rm.logger.ErrorContext(ctx, "purge expired reset tickets", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				rm.logger.DebugContext(ctx, "purged expired reset tickets", slog.Int("count", n))
			}
		}
	}
}

// LogNotifier writes reset tokens to the log instead of mailing them.
type LogNotifier struct {
	logger *slog.Logger
}

var _ core.ResetNotifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "password reset requested",
		slog.String("email", email),
		slog.String("token", token),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}
