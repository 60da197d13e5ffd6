package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/medauth/core"
)

// Ensure TicketCache implements TicketStorage
var _ core.TicketStorage = (*TicketCache)(nil)

type Config struct {
	MaxSize int
	Now     func() time.Time
}

// Stats are simple counters for cache behavior.
// These are intended for diagnostics and monitoring.
type Stats struct {
	Puts      int64 `json:"puts"`
	Takes     int64 `json:"takes"`
	Misses    int64 `json:"misses"`
	Expired   int64 `json:"expired"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// TicketCache is an in-memory reset ticket store keyed by token hash.
type TicketCache struct {
	tickets map[string]*core.ResetTicket
	mu      sync.Mutex
	maxSize int
	now     func() time.Time

	// counters
	puts      int64
	takes     int64
	misses    int64
	expired   int64
	evictions int64
}

// NewTicketCache creates a new in-memory ticket store
func NewTicketCache(c Config) *TicketCache {
	if c.MaxSize == 0 {
		c.MaxSize = 10000
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &TicketCache{
		tickets: make(map[string]*core.ResetTicket),
		maxSize: c.MaxSize,
		now:     c.Now,
	}
}

// PutTicket stores a ticket. When full, expired tickets are purged first and
// the ticket closest to expiry is evicted if still needed.
func (c *TicketCache) PutTicket(_ context.Context, t *core.ResetTicket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tickets[t.TokenHash]; !exists && len(c.tickets) >= c.maxSize {
		c.purgeLocked(c.now())
		if len(c.tickets) >= c.maxSize {
			c.evictOldestLocked()
		}
	}

	stored := *t
	c.tickets[t.TokenHash] = &stored
	atomic.AddInt64(&c.puts, 1)
	return nil
}

// TakeTicket removes and returns the ticket. Expired tickets are still
// returned so the caller can decide; they are removed either way.
func (c *TicketCache) TakeTicket(_ context.Context, tokenHash string) (*core.ResetTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, exists := c.tickets[tokenHash]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, core.ErrTicketNotFound
	}

	delete(c.tickets, tokenHash)
	atomic.AddInt64(&c.takes, 1)
	return t, nil
}

// DeleteExpiredTickets reaps tickets that expired before now
func (c *TicketCache) DeleteExpiredTickets(_ context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(now), nil
}

func (c *TicketCache) purgeLocked(now time.Time) int {
	removed := 0
	for k, t := range c.tickets {
		if t.Expired(now) {
			delete(c.tickets, k)
			removed++
		}
	}
	atomic.AddInt64(&c.expired, int64(removed))
	return removed
}

func (c *TicketCache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, t := range c.tickets {
		if oldestKey == "" || t.ExpiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, t.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(c.tickets, oldestKey)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// Len returns the number of stored tickets
func (c *TicketCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickets)
}

// Stats returns cache statistics
func (c *TicketCache) Stats() Stats {
	return Stats{
		Puts:      atomic.LoadInt64(&c.puts),
		Takes:     atomic.LoadInt64(&c.takes),
		Misses:    atomic.LoadInt64(&c.misses),
		Expired:   atomic.LoadInt64(&c.expired),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
	}
}
