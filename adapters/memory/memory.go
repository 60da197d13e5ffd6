package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/cache"
)

// Adapter keeps accounts in process memory and delegates reset tickets to a
// TicketCache. Suitable for demos and tests; nothing survives a restart.
type Adapter struct {
	*cache.TicketCache

	mu      sync.RWMutex
	byID    map[string]*core.Account
	byEmail map[string]string // normalized email -> id
	now     func() time.Time
}

var _ core.StorageAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithClock sets the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithTicketCache replaces the default ticket cache.
func WithTicketCache(c *cache.TicketCache) Option {
	return func(a *Adapter) { a.TicketCache = c }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		byID:    make(map[string]*core.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.TicketCache == nil {
		a.TicketCache = cache.NewTicketCache(cache.Config{Now: a.now})
	}
	return a
}

func (a *Adapter) CreateAccount(_ context.Context, acc *core.Account) error {
	key := core.NormalizeEmail(acc.Email)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, taken := a.byEmail[key]; taken {
		return core.ErrDuplicateEmail
	}

	now := a.now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	stored := *acc
	a.byID[acc.ID] = &stored
	a.byEmail[key] = acc.ID
	return nil
}

func (a *Adapter) GetAccountByID(_ context.Context, id string) (*core.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acc, ok := a.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	out := *acc
	return &out, nil
}

func (a *Adapter) GetAccountByEmail(_ context.Context, email string) (*core.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	out := *a.byID[id]
	return &out, nil
}

func (a *Adapter) UpdatePasswordHash(_ context.Context, email, hash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return core.ErrUserNotFound
	}
	acc := a.byID[id]
	acc.PasswordHash = hash
	acc.UpdatedAt = a.now()
	return nil
}

// Count returns the number of stored accounts.
func (a *Adapter) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byID)
}
