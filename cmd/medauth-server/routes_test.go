package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/medauth"
	fiberadapter "github.com/lborres/medauth/adapters/fiber"
	"github.com/lborres/medauth/adapters/memory"
	"github.com/lborres/medauth/config"
	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
)

func newTestServer(t *testing.T) (*fiber.App, *memory.Adapter) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := fiber.New()
	storage := memory.New()

	auth, err := medauth.New(medauth.Config{
		Secret:         "server-route-test-secret-0123456789",
		Storage:        storage,
		HTTP:           fiberadapter.New(app, fiberadapter.WithLogger(log)),
		PasswordHasher: crypto.NewFastArgon2(),
		Logger:         log,
	})
	require.NoError(t, err)

	seedDemoAccounts(context.Background(), auth, log)
	seedDemoAccounts(context.Background(), auth, log)
	registerAppRoutes(app, auth)
	return app, storage
}

func loginToken(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out medauth.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func TestSeedDemoAccounts_Idempotent(t *testing.T) {
	_, storage := newTestServer(t)

	assert.Equal(t, len(memory.DemoAccounts()), storage.Count())
}

func TestAppRoutes_RoleGates(t *testing.T) {
	app, _ := newTestServer(t)
	doctor := loginToken(t, app, "doctor@medinexus.com", "password123")
	admin := loginToken(t, app, "admin@medinexus.com", "admin123")
	researcher := loginToken(t, app, "researcher@medinexus.com", "research123")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"me without token", "/api/me", "", http.StatusUnauthorized},
		{"me as doctor", "/api/me", doctor, http.StatusOK},
		{"admin overview as doctor", "/api/admin/overview", doctor, http.StatusForbidden},
		{"admin overview as admin", "/api/admin/overview", admin, http.StatusOK},
		{"datasets as researcher", "/api/research/datasets", researcher, http.StatusOK},
		{"datasets as admin", "/api/research/datasets", admin, http.StatusOK},
		{"datasets as doctor", "/api/research/datasets", doctor, http.StatusForbidden},
		{"datasets with junk token", "/api/research/datasets", "junk", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLogFormat(t *testing.T) {
	format := logFormat()

	assert.Contains(t, format, "${status}")
	assert.Contains(t, format, "${respHeader:X-Request-ID}")
	assert.NotContains(t, format, "${body}")
	assert.NotContains(t, format, "Authorization")
}

// Requirement: every response carries the request id that the access log prints.
func TestNewApp_SetsRequestID(t *testing.T) {
	app := newApp()
	app.Get("/ping", func(c fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, first.StatusCode)
	assert.NotEmpty(t, first.Header.Get(fiber.HeaderXRequestID))
	assert.NotEqual(t, first.Header.Get(fiber.HeaderXRequestID), second.Header.Get(fiber.HeaderXRequestID))
}

func TestOpenStorage_InMemory(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg := &config.Config{}
	cfg.LoadDefaults()

	storage, closeStorage, err := openStorage(context.Background(), cfg, log)
	require.NoError(t, err)
	require.IsType(t, &memory.Adapter{}, storage)

	seedDemoAccounts(context.Background(), newAuthFor(t, storage), log)
	closeStorage()

	assert.Contains(t, buf.String(), `"accounts":3`)
}

func newAuthFor(t *testing.T, storage core.StorageAdapter) *medauth.Auth {
	t.Helper()
	auth, err := medauth.New(medauth.Config{
		Secret:         "server-route-test-secret-0123456789",
		Storage:        storage,
		HTTP:           fiberadapter.New(fiber.New()),
		PasswordHasher: crypto.NewFastArgon2(),
	})
	require.NoError(t, err)
	return auth
}
