package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/medauth/core"
)

var ErrRequestInFlight = errors.New("a login request is already in progress")

// State is the observable session state.
type State struct {
	User            *core.User `json:"user"`
	Token           string     `json:"token"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	IsLoading       bool       `json:"isLoading"`
	Error           string     `json:"error,omitempty"`
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Record is the persisted subset of State.
type Record struct {
	User            *core.User `json:"user"`
	Token           string     `json:"token"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

type envelope struct {
	State   Record `json:"state"`
	Version int    `json:"version"`
}

// UserPatch is a partial identity update. Nil fields are left unchanged.
type UserPatch struct {
	Email      *string
	Name       *string
	Role       *string
	Department *string
	Avatar     *string
}

type Options struct {
	Transport Transport
	Records   RecordStore
	// Key overrides RecordKey.
	Key    string
	Now    func() time.Time
	Logger *slog.Logger
}

// Store holds the client-side session. All methods are safe for concurrent use.
type Store struct {
	transport Transport
	records   RecordStore
	key       string
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	seq      uint64
	inFlight bool
	subs     map[int]*subscription
	nextSub  int
}

// subscription delivers snapshots to one listener in commit order. A snapshot
// older than one already delivered is dropped.
type subscription struct {
	fn func(State)

	mu        sync.Mutex
	last      uint64
	delivered bool
}

func (sub *subscription) deliver(seq uint64, st State) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.last {
		return
	}
	sub.last = seq
	sub.delivered = true
	sub.fn(st)
}

// deliverInitial hands over the state seen at registration unless a newer
// commit got there first.
func (sub *subscription) deliverInitial(st State) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.delivered {
		return
	}
	sub.delivered = true
	sub.fn(st)
}

// NewStore builds a store and restores the persisted record, if any.
// A persisted token that is already expired restores as signed out.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.Records == nil {
		opts.Records = NewMemoryRecordStore()
	}
	if opts.Key == "" {
		opts.Key = RecordKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		transport: opts.Transport,
		records:   opts.Records,
		key:       opts.Key,
		now:       opts.Now,
		logger:    opts.Logger,
		subs:      make(map[int]*subscription),
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	data, err := s.records.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load session record: %w", err)
	}
	if data == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session record", slog.String("error", err.Error()))
		return nil
	}

	rec := env.State
	s.state.User = rec.User
	s.state.Token = rec.Token
	s.state.IsAuthenticated = rec.IsAuthenticated && rec.User != nil && rec.Token != "" && !TokenExpired(rec.Token, s.now())
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to be called with the new state after every change.
// Calls to fn are serialized and arrive in commit order; a state superseded
// before it could be delivered is skipped. fn runs on the goroutine that made
// the change and must not change the store itself. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	_, _, unsubscribe := s.subscribe(fn)
	return unsubscribe
}

// subscribeCurrent is Subscribe plus one delivery of the current state,
// ordered with respect to concurrent changes.
func (s *Store) subscribeCurrent(fn func(State)) func() {
	sub, current, unsubscribe := s.subscribe(fn)
	sub.deliverInitial(current)
	return unsubscribe
}

func (s *Store) subscribe(fn func(State)) (*subscription, State, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := &subscription{fn: fn, last: s.seq}
	s.subs[id] = sub
	current := s.state.clone()
	s.mu.Unlock()

	var once sync.Once
	return sub, current, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Login authenticates against the server. A second call while one is pending
// returns ErrRequestInFlight without touching the state. If ctx ends before
// the answer arrives the answer is discarded.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrRequestInFlight
	}
	s.inFlight = true
	s.state.IsLoading = true
	s.state.Error = ""
	s.commitLocked(ctx, false)

	result, err := s.transport.Login(ctx, email, password)

	s.mu.Lock()
	s.inFlight = false
	s.state.IsLoading = false

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.commitLocked(ctx, false)
		return ctxErr
	}
	if err != nil {
		s.state.Error = userMessage(err)
		s.commitLocked(ctx, false)
		s.logger.WarnContext(ctx, "login failed", slog.String("error", err.Error()))
		return err
	}
	if result == nil || result.User == nil || result.Token == "" {
		s.logger.WarnContext(ctx, "login response missing user or token")
		s.state.Error = core.MsgLoginFailed
		s.commitLocked(ctx, false)
		return errors.New("login response missing user or token")
	}

	s.state.User = result.User
	s.state.Token = result.Token
	s.state.IsAuthenticated = true
	s.commitLocked(ctx, true)
	return nil
}

// Logout clears the session locally and removes the persisted record.
// The server is not contacted.
func (s *Store) Logout() {
	ctx := context.Background()

	s.mu.Lock()
	s.state.User = nil
	s.state.Token = ""
	s.state.IsAuthenticated = false
	if err := s.records.Delete(ctx, s.key); err != nil {
		s.logger.ErrorContext(ctx, "delete session record", slog.String("error", err.Error()))
	}
	s.commitLocked(ctx, false)
}

// RefreshToken swaps the current token for a fresh one. It reports false
// when there is no token or the exchange fails; it never returns an error.
func (s *Store) RefreshToken(ctx context.Context) bool {
	s.mu.Lock()
	token := s.state.Token
	s.mu.Unlock()

	if token == "" {
		return false
	}

	result, err := s.transport.Refresh(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "token refresh failed", slog.String("error", err.Error()))
		return false
	}
	if ctx.Err() != nil || result == nil || result.Token == "" {
		return false
	}

	s.mu.Lock()
	// Signed out or replaced while the request was out.
	if s.state.Token != token {
		s.mu.Unlock()
		return false
	}
	s.state.Token = result.Token
	s.state.IsAuthenticated = true
	if result.User != nil {
		s.state.User = result.User
	}
	s.commitLocked(ctx, true)
	return true
}

// UpdateUser merges patch into the current user. It does nothing when signed out.
func (s *Store) UpdateUser(patch UserPatch) {
	s.mu.Lock()
	if !s.state.IsAuthenticated || s.state.User == nil {
		s.mu.Unlock()
		return
	}

	u := *s.state.User
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Department != nil {
		u.Department = *patch.Department
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	s.state.User = &u
	s.commitLocked(context.Background(), true)
}

// ClearError resets the last error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.commitLocked(context.Background(), false)
}

// commitLocked optionally persists, releases the lock and notifies
// subscribers. The caller must hold s.mu.
func (s *Store) commitLocked(ctx context.Context, persist bool) {
	if persist {
		s.persistLocked(ctx)
	}

	s.seq++
	seq := s.seq
	snapshot := s.state.clone()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, snapshot)
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	data, err := json.Marshal(envelope{State: Record{
		User:            s.state.User,
		Token:           s.state.Token,
		IsAuthenticated: s.state.IsAuthenticated,
	}})
	if err != nil {
		s.logger.ErrorContext(ctx, "encode session record", slog.String("error", err.Error()))
		return
	}
	if err := s.records.Set(ctx, s.key, data); err != nil {
		s.logger.ErrorContext(ctx, "persist session record", slog.String("error", err.Error()))
	}
}

// TokenExpiry decodes the token's exp claim without verifying the signature.
// ok is false when the token is undecodable or carries no exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &core.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp = claims.Expires()
	return exp, !exp.IsZero()
}

// TokenExpired reports whether token is past its exp at now. Undecodable
// tokens count as expired; tokens without exp never expire locally.
func TokenExpired(token string, now time.Time) bool {
	claims := &core.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp := claims.Expires()
	if exp.IsZero() {
		return false
	}
	return !now.Before(exp)
}

// userMessage turns a transport error into text fit for the UI. Only messages
// the server wrote for the user pass through.
func userMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return core.MsgLoginFailed
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return core.MsgNetworkError
	}
	return core.MsgLoginFailed
}
