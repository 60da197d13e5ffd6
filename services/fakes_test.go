package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lborres/medauth/adapters/memory"
	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// fakeClock is a settable time source. Times are whole seconds so that they
// survive the second precision of token timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureNotifier records delivered reset tokens.
type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string][]string
	err    error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{tokens: make(map[string][]string)}
}

func (n *captureNotifier) SendResetToken(_ context.Context, email, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[email] = append(n.tokens[email], token)
	return n.err
}

func (n *captureNotifier) Last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	list := n.tokens[email]
	if len(list) == 0 {
		return ""
	}
	return list[len(list)-1]
}

func (n *captureNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, list := range n.tokens {
		total += len(list)
	}
	return total
}

// failingStorage injects errors into an otherwise working memory adapter.
type failingStorage struct {
	*memory.Adapter
	getErr    error
	createErr error
	takeErr   error
}

func (f *failingStorage) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Adapter.GetAccountByEmail(ctx, email)
}

func (f *failingStorage) CreateAccount(ctx context.Context, a *core.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Adapter.CreateAccount(ctx, a)
}

func (f *failingStorage) TakeTicket(ctx context.Context, hash string) (*core.ResetTicket, error) {
	if f.takeErr != nil {
		return nil, f.takeErr
	}
	return f.Adapter.TakeTicket(ctx, hash)
}

type testEnv struct {
	clock    *fakeClock
	storage  *memory.Adapter
	notifier *captureNotifier
	creds    *CredentialStore
	tokens   *TokenIssuer
	resets   *ResetManager
	service  *AuthService
}

func newTestEnv() *testEnv {
	clock := newFakeClock()
	storage := memory.New(memory.WithClock(clock.Now))
	notifier := newCaptureNotifier()
	creds := NewCredentialStore(storage, crypto.NewFastArgon2())
	tokens := NewTokenIssuer(testSecret, core.DefaultTokenTTL, core.DefaultRefreshGrace, clock.Now)
	resets := NewResetManager(storage, creds, ResetConfig{
		Notifier: notifier,
		Logger:   discardLogger(),
		Now:      clock.Now,
	})

	return &testEnv{
		clock:    clock,
		storage:  storage,
		notifier: notifier,
		creds:    creds,
		tokens:   tokens,
		resets:   resets,
		service:  NewAuthService(creds, tokens, resets, nil),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
