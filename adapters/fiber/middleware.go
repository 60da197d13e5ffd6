package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/medauth/core"
)

const (
	localsUser   = "user"
	localsClaims = "claims"
)

// Protected validates the bearer token (or auth cookie) and stores the user
// and claims in the context for downstream handlers.
func Protected(auth core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{Message: messageFor(err)})
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{Message: messageFor(err)})
		}

		c.Locals(localsUser, claims.User())
		c.Locals(localsClaims, claims)

		return c.Next()
	}
}

// RequireRoles admits users holding any of roles. It must run after Protected.
// With no roles it admits every authenticated user.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := UserFromContext(c)
		if user == nil {
			return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{Message: core.MsgMissingToken})
		}
		if !core.HasAnyRole(user, roles) {
			return c.Status(http.StatusForbidden).JSON(core.ErrorResponse{Message: core.MsgForbidden})
		}
		return c.Next()
	}
}

// UserFromContext returns the user stored by Protected, or nil.
func UserFromContext(c fiber.Ctx) *core.User {
	user, _ := c.Locals(localsUser).(*core.User)
	return user
}

// ClaimsFromContext returns the token claims stored by Protected, or nil.
func ClaimsFromContext(c fiber.Ctx) *core.TokenClaims {
	claims, _ := c.Locals(localsClaims).(*core.TokenClaims)
	return claims
}
