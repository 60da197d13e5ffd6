package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/medauth/adapters/memory"
	"github.com/lborres/medauth/client"
	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
	"github.com/lborres/medauth/services"
)

const testSecret = "cli-test-secret-0123456789abcdef0123"

type inbox struct {
	mu   sync.Mutex
	last string
}

func (i *inbox) SendResetToken(_ context.Context, _, token string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last = token
	return nil
}

// inProcessAPI serves the CLI straight from the auth service, translating
// errors the way the HTTP layer would.
type inProcessAPI struct {
	auth *services.AuthService
}

func apiErr(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		return &client.APIError{Status: 401, Message: core.MsgBadCredentials}
	case errors.Is(err, core.ErrDuplicateEmail):
		return &client.APIError{Status: 409, Message: core.MsgDuplicateEmail}
	case errors.Is(err, core.ErrInvalidOrExpiredToken):
		return &client.APIError{Status: 400, Message: core.MsgBadResetToken}
	default:
		return &client.APIError{Status: 400, Message: err.Error()}
	}
}

func (p *inProcessAPI) Login(ctx context.Context, email, password string) (*core.AuthResult, error) {
	r, err := p.auth.Login(ctx, core.LoginInput{Email: email, Password: password})
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

func (p *inProcessAPI) Refresh(ctx context.Context, token string) (*core.AuthResult, error) {
	r, err := p.auth.Refresh(ctx, token)
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

func (p *inProcessAPI) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	r, err := p.auth.Register(ctx, input)
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

func (p *inProcessAPI) Session(ctx context.Context, token string) (*core.SessionData, error) {
	r, err := p.auth.GetSession(ctx, token)
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

func (p *inProcessAPI) RequestPasswordReset(ctx context.Context, email string) (*core.MessageResult, error) {
	r, err := p.auth.RequestPasswordReset(ctx, core.ResetRequestInput{Email: email})
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

func (p *inProcessAPI) ConsumePasswordReset(ctx context.Context, token, newPassword string) (*core.MessageResult, error) {
	r, err := p.auth.ConsumePasswordReset(ctx, core.ResetConsumeInput{Token: token, NewPassword: newPassword})
	if err != nil {
		return nil, apiErr(err)
	}
	return r, nil
}

type env struct {
	api     *inProcessAPI
	records *client.MemoryRecordStore
	inbox   *inbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage := memory.New()
	box := &inbox{}
	creds := services.NewCredentialStore(storage, crypto.NewFastArgon2())
	tokens := services.NewTokenIssuer(testSecret, core.DefaultTokenTTL, core.DefaultRefreshGrace, nil)
	resets := services.NewResetManager(storage, creds, services.ResetConfig{Notifier: box, Logger: logger})
	auth := services.NewAuthService(creds, tokens, resets, nil)

	ctx := context.Background()
	for _, demo := range memory.DemoAccounts() {
		_, err := auth.Register(ctx, demo)
		require.NoError(t, err)
	}

	return &env{api: &inProcessAPI{auth: auth}, records: client.NewMemoryRecordStore(), inbox: box}
}

// run executes one command in a fresh process-like App sharing the records.
func (e *env) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app, err := NewApp(context.Background(), e.api, e.records, strings.NewReader(input), &out,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	err = app.Run(context.Background(), args)
	return out.String(), err
}

func TestApp_LoginWhoamiLogout(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "password123\n", "login", "doctor@medinexus.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as")
	assert.Contains(t, out, "(doctor)")

	out, err = e.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "<doctor@medinexus.com>")
	assert.Contains(t, out, "role: doctor")
	assert.Contains(t, out, "token expires:")

	out, err = e.run(t, "", "guard", "/admin", core.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "authenticated-unauthorized -> /unauthorized\n", out)

	out, err = e.run(t, "", "guard", "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "authorized\n", out)

	out, err = e.run(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	out, err = e.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)

	out, err = e.run(t, "", "guard", "/reports?y=1")
	require.NoError(t, err)
	assert.Equal(t, "unauthenticated -> /login?returnUrl=%2Freports%3Fy%3D1\n", out)
}

func TestApp_LoginFailureShowsServerMessage(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "wrong-password\n", "login", "doctor@medinexus.com")

	require.Error(t, err)
	assert.Equal(t, core.MsgBadCredentials, err.Error())
}

func TestApp_SessionAndRefresh(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "session")
	assert.EqualError(t, err, core.MsgMissingToken)
	_, err = e.run(t, "", "refresh")
	assert.EqualError(t, err, core.MsgRefreshRejected)

	_, err = e.run(t, "admin123\n", "login", "admin@medinexus.com")
	require.NoError(t, err)

	out, err := e.run(t, "", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "<admin@medinexus.com> issued")

	out, err = e.run(t, "", "refresh")
	require.NoError(t, err)
	assert.Equal(t, "Session refreshed\n", out)
}

func TestApp_RegisterAndReset(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "secret1\n", "register", "new@x.com", "Dr. New", core.RoleResearcher, "Genomics")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered new@x.com as researcher")

	_, err = e.run(t, "secret1\n", "register", "NEW@x.com", "Dup", core.RoleDoctor)
	assert.EqualError(t, err, core.MsgDuplicateEmail)

	out, err = e.run(t, "", "reset-request", "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, core.MsgResetRequested+"\n", out)
	e.inbox.mu.Lock()
	token := e.inbox.last
	e.inbox.mu.Unlock()
	require.NotEmpty(t, token)

	out, err = e.run(t, "newpass1\n", "reset-consume", token)
	require.NoError(t, err)
	assert.Contains(t, out, core.MsgPasswordReset)

	_, err = e.run(t, "newpass1\n", "reset-consume", token)
	assert.EqualError(t, err, core.MsgBadResetToken)

	_, err = e.run(t, "newpass1\n", "login", "new@x.com")
	require.NoError(t, err)
}

func TestApp_Usage(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown", []string{"frobnicate"}},
		{"login without email", []string{"login"}},
		{"register short", []string{"register", "a@x.com"}},
		{"reset-request without email", []string{"reset-request"}},
		{"reset-consume without token", []string{"reset-consume"}},
		{"guard without path", []string{"guard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, "", tt.args...)
			assert.Error(t, err)
		})
	}

	out, err := e.run(t, "", "help")
	require.NoError(t, err)
	assert.Contains(t, out, "usage: medauth-cli")
}

func TestApp_PasswordFromPipeWithoutNewline(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "research123", "login", "researcher@medinexus.com")

	require.NoError(t, err)
}
