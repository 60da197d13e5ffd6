package services

import (
	"fmt"
	"net/http"

	"github.com/lborres/medauth/core"
)

// BaseEndpoints returns framework-agnostic endpoint definitions
// for all authentication endpoints.
//
// Each endpoint is a template: Path and Method are set, and adapters bind
// the handler for Metadata.OperationID.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/login",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogin,
				Description: "Sign in with email and password",
			},
		},
		{
			Path:   "/register",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpRegister,
				Description: "Register a new account and sign it in",
			},
		},
		{
			Path:   "/reset-password",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpRequestPasswordReset,
				Description: "Request a password reset token",
			},
		},
		{
			Path:   "/reset-password",
			Method: http.MethodPut,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpConsumePasswordReset,
				Description: "Set a new password using a reset token",
			},
		},
		{
			Path:   "/refresh",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpRefreshToken,
				Description: "Exchange a valid or recently expired token for a new one",
				Protected:   true,
			},
		},
		{
			Path:   "/session",
			Method: http.MethodGet,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpGetSession,
				Description: "Get the identity behind the current token",
				Protected:   true,
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
	order     []string
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		// base endpoints are distinct
		_ = reg.register(&base[i])
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint with conflict detection.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts with
// a registered endpoint or with another in the same batch, none is registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		_ = r.register(&endpoints[i])
	}

	return nil
}

// Endpoints returns all registered endpoints in registration order.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.endpoints[key])
	}
	return result
}
