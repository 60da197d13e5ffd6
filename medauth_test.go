package medauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	fiberadapter "github.com/lborres/medauth/adapters/fiber"
	"github.com/lborres/medauth/adapters/memory"
	"github.com/lborres/medauth/pkg/crypto"
)

const testSecret = "01234567890123456789012345678901"

// dummy HTTP Adapter
type dummyHTTP struct {
	handler  AuthHandler
	basePath string
	err      error
}

func (d *dummyHTTP) RegisterRoutes(h AuthHandler, basePath string) error {
	d.handler = h
	d.basePath = basePath
	return d.err
}

type inbox struct {
	last string
}

func (i *inbox) SendResetToken(_ context.Context, _, token string, _ time.Time) error {
	i.last = token
	return nil
}

func TestNewShouldReturnErrSecretRequired(t *testing.T) {
	_, err := New(Config{Storage: memory.New(), HTTP: &dummyHTTP{}})
	if !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestNewShouldReturnErrSecretTooShort(t *testing.T) {
	cfg := Config{
		Secret:  "short-secret",
		Storage: memory.New(),
		HTTP:    &dummyHTTP{},
	}

	_, err := New(cfg)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort sentinel (errors.Is), got %v", err)
	}
	// Message should include the minimum length
	if !strings.Contains(err.Error(), "32") {
		t.Fatalf("expected error message to include minimum length, got %v", err)
	}
}

func TestNewShouldRequireAdapters(t *testing.T) {
	if _, err := New(Config{Secret: testSecret, HTTP: &dummyHTTP{}}); !errors.Is(err, ErrStorageRequired) {
		t.Fatalf("expected ErrStorageRequired, got %v", err)
	}
	if _, err := New(Config{Secret: testSecret, Storage: memory.New()}); !errors.Is(err, ErrHTTPAdapterRequired) {
		t.Fatalf("expected ErrHTTPAdapterRequired, got %v", err)
	}
}

func TestNewShouldApplyDefaults(t *testing.T) {
	adapter := &dummyHTTP{}

	auth, err := New(Config{Secret: testSecret, Storage: memory.New(), HTTP: adapter, PasswordHasher: crypto.NewFastArgon2()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if auth.BasePath != "/api/auth" || adapter.basePath != "/api/auth" {
		t.Fatalf("expected default base path, got %q / %q", auth.BasePath, adapter.basePath)
	}
	if adapter.handler == nil {
		t.Fatal("expected routes to be registered with the auth handler")
	}
	if auth.Tokens.TTL() != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %v", auth.Tokens.TTL())
	}
}

func TestNewShouldHonourRefreshGrace(t *testing.T) {
	tests := []struct {
		name  string
		grace time.Duration
		want  time.Duration
	}{
		{"unset", 0, 7 * 24 * time.Hour},
		{"explicit", time.Hour, time.Hour},
		{"disabled", NoRefreshGrace, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			auth, err := New(Config{Secret: testSecret, Storage: memory.New(), HTTP: &dummyHTTP{}, RefreshGrace: test.grace})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if got := auth.Tokens.Grace(); got != test.want {
				t.Fatalf("expected grace %v, got %v", test.want, got)
			}
		})
	}
}

func TestNewShouldPropagateRouteErrors(t *testing.T) {
	boom := errors.New("route conflict")
	_, err := New(Config{Secret: testSecret, Storage: memory.New(), HTTP: &dummyHTTP{err: boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected route error, got %v", err)
	}
}

func TestNewShouldWireEndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := fiber.New()
	notifier := &inbox{}

	auth, err := New(Config{
		Secret:         testSecret,
		Storage:        memory.New(),
		HTTP:           fiberadapter.New(app, fiberadapter.WithLogger(logger)),
		PasswordHasher: crypto.NewFastArgon2(),
		Notifier:       notifier,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	post := func(method, path string, body interface{}) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %s %s: %v", method, path, err)
		}
		return resp
	}

	resp := post(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "a@x.com", "password": "secret1", "name": "A", "role": RoleDoctor,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", resp.StatusCode)
	}

	resp = post(http.MethodPost, "/api/auth/reset-password", map[string]string{"email": "a@x.com"})
	if resp.StatusCode != http.StatusOK || notifier.last == "" {
		t.Fatalf("reset request: status %d, token %q", resp.StatusCode, notifier.last)
	}

	resp = post(http.MethodPut, "/api/auth/reset-password", map[string]string{"token": notifier.last, "newPassword": "newpass1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset consume: expected 200, got %d", resp.StatusCode)
	}

	resp = post(http.MethodPost, "/api/auth/login", map[string]string{"email": "A@X.com", "password": "newpass1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", resp.StatusCode)
	}

	var result AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	claims, err := auth.VerifyToken(result.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Email != "a@x.com" || claims.Role != RoleDoctor {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	n, err := auth.PurgeExpiredTickets(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
}
