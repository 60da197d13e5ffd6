package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lborres/medauth/core"
)

// Transport is what the session store needs from the server.
type Transport interface {
	Login(ctx context.Context, email, password string) (*core.AuthResult, error)
	Refresh(ctx context.Context, token string) (*core.AuthResult, error)
}

// APIError is a non-2xx answer from the auth endpoints.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: status %d", e.Status)
	}
	return fmt.Sprintf("auth api: status %d: %s", e.Status, e.Message)
}

// HTTPTransport is a JSON client of the auth endpoints.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport targets baseURL, e.g. http://localhost:8080/api/auth.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (t *HTTPTransport) Login(ctx context.Context, email, password string) (*core.AuthResult, error) {
	var out core.AuthResult
	err := t.do(ctx, http.MethodPost, "/login", "", core.LoginInput{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	var out core.AuthResult
	if err := t.do(ctx, http.MethodPost, "/register", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) Refresh(ctx context.Context, token string) (*core.AuthResult, error) {
	var out core.AuthResult
	if err := t.do(ctx, http.MethodPost, "/refresh", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) Session(ctx context.Context, token string) (*core.SessionData, error) {
	var out core.SessionData
	if err := t.do(ctx, http.MethodGet, "/session", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) RequestPasswordReset(ctx context.Context, email string) (*core.MessageResult, error) {
	var out core.MessageResult
	if err := t.do(ctx, http.MethodPost, "/reset-password", "", core.ResetRequestInput{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) ConsumePasswordReset(ctx context.Context, token, newPassword string) (*core.MessageResult, error) {
	var out core.MessageResult
	in := core.ResetConsumeInput{Token: token, NewPassword: newPassword}
	if err := t.do(ctx, http.MethodPut, "/reset-password", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg core.ErrorResponse
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
