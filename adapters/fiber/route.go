package fiber

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/services"
)

type Adapter struct {
	app      *fiber.App
	logger   *slog.Logger
	registry *services.EndpointRegistry
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithRegistry replaces the default endpoint registry.
func WithRegistry(reg *services.EndpointRegistry) Option {
	return func(a *Adapter) { a.registry = reg }
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{app: app}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.registry == nil {
		a.registry = services.NewEndpointRegistry()
	}
	return a
}

// App returns the underlying fiber application.
func (a *Adapter) App() *fiber.App {
	return a.app
}

// RegisterRoutes mounts every registry endpoint under basePath. Protected
// endpoints go through the bearer token middleware first.
func (a *Adapter) RegisterRoutes(handler core.AuthHandler, basePath string) error {
	handlers := map[string]fiber.Handler{
		core.OpLogin:                a.handleLogin(handler),
		core.OpRegister:             a.handleRegister(handler),
		core.OpRequestPasswordReset: a.handleRequestReset(handler),
		core.OpConsumePasswordReset: a.handleConsumeReset(handler),
		core.OpRefreshToken:         a.handleRefresh(handler),
		core.OpGetSession:           a.handleGetSession(handler),
	}

	api := a.app.Group(basePath)
	protected := Protected(handler)

	for _, ep := range a.registry.Endpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no fiber handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}

		// Refresh must see expired tokens, so it checks the token itself.
		if ep.Metadata.Protected && ep.Metadata.OperationID != core.OpRefreshToken {
			api.Add([]string{ep.Method}, ep.Path, protected, h)
			continue
		}
		api.Add([]string{ep.Method}, ep.Path, h)
	}

	return nil
}
