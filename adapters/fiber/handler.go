package fiber

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/medauth/core"
)

// CookieName is the cookie that may carry the session token.
const CookieName = "auth-token"

// handleLogin returns a handler for the login endpoint
func (a *Adapter) handleLogin(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.LoginInput
		if err := c.Bind().Body(&input); err != nil {
			return a.writeError(c, http.StatusBadRequest, core.MsgInvalidBody)
		}

		result, err := auth.Login(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// handleRegister returns a handler for the register endpoint
func (a *Adapter) handleRegister(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.RegisterInput
		if err := c.Bind().Body(&input); err != nil {
			return a.writeError(c, http.StatusBadRequest, core.MsgInvalidBody)
		}

		result, err := auth.Register(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// handleRequestReset returns a handler for POST /reset-password
func (a *Adapter) handleRequestReset(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.ResetRequestInput
		if err := c.Bind().Body(&input); err != nil {
			return a.writeError(c, http.StatusBadRequest, core.MsgInvalidBody)
		}

		result, err := auth.RequestPasswordReset(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// handleConsumeReset returns a handler for PUT /reset-password
func (a *Adapter) handleConsumeReset(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.ResetConsumeInput
		if err := c.Bind().Body(&input); err != nil {
			return a.writeError(c, http.StatusBadRequest, core.MsgInvalidBody)
		}

		result, err := auth.ConsumePasswordReset(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// handleRefresh returns a handler for the refresh endpoint
func (a *Adapter) handleRefresh(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return a.writeError(c, http.StatusUnauthorized, messageFor(err))
		}

		result, err := auth.Refresh(c.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrInvalidToken) || errors.Is(err, core.ErrTokenExpired) {
				return a.writeError(c, http.StatusUnauthorized, core.MsgRefreshRejected)
			}
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// handleGetSession returns a handler for the session endpoint
func (a *Adapter) handleGetSession(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		session, err := auth.GetSession(c.Context(), token)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(session)
	}
}

// extractToken extracts the authentication token from the request.
// An Authorization header must carry a Bearer token; the cookie is only
// consulted when the header is absent.
func extractToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if token := c.Cookies(CookieName); token != "" {
			return token, nil
		}
		return "", core.ErrMissingAuthHeader
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return token, nil
}

// handleAuthError maps errors to a status and a user-facing message. Internal
// errors are logged and answered generically.
func (a *Adapter) handleAuthError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(c.Context(), "auth request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return a.writeError(c, status, messageFor(err))
}

func (a *Adapter) writeError(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(core.ErrorResponse{Message: msg})
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrDuplicateEmail):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return err.Error()
	case errors.Is(err, core.ErrInvalidOrExpiredToken):
		return core.MsgBadResetToken
	case errors.Is(err, core.ErrInvalidCredentials):
		return core.MsgBadCredentials
	case errors.Is(err, core.ErrTokenExpired):
		return core.MsgExpiredSession
	case errors.Is(err, core.ErrInvalidToken):
		return core.MsgInvalidSession
	case errors.Is(err, core.ErrMissingAuthHeader):
		return core.MsgMissingToken
	case errors.Is(err, core.ErrInvalidAuthHeader):
		return core.MsgBadAuthHeader
	case errors.Is(err, core.ErrForbidden):
		return core.MsgForbidden
	case errors.Is(err, core.ErrUserNotFound):
		return core.MsgUserNotFound
	case errors.Is(err, core.ErrDuplicateEmail):
		return core.MsgDuplicateEmail
	default:
		return core.MsgInternalError
	}
}
