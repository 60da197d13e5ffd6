package main

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/medauth"
	fiberadapter "github.com/lborres/medauth/adapters/fiber"
)

// registerAppRoutes mounts the application endpoints that sit behind the
// auth middleware.
func registerAppRoutes(app *fiber.App, auth *medauth.Auth) {
	api := app.Group("/api")

	api.Get("/me", fiberadapter.Protected(auth), meHandler)
	api.Get("/admin/overview",
		fiberadapter.Protected(auth),
		fiberadapter.RequireRoles(medauth.RoleAdmin),
		adminOverviewHandler)
	api.Get("/research/datasets",
		fiberadapter.Protected(auth),
		fiberadapter.RequireRoles(medauth.RoleResearcher, medauth.RoleAdmin),
		datasetsHandler)
}

func meHandler(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user": fiberadapter.UserFromContext(c),
	})
}

func adminOverviewHandler(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Access granted to admin overview",
		"user":    fiberadapter.UserFromContext(c),
	})
}

func datasetsHandler(c fiber.Ctx) error {
	claims := fiberadapter.ClaimsFromContext(c)
	return c.JSON(fiber.Map{
		"message":   "Access granted to research datasets",
		"user":      claims.User(),
		"expiresAt": claims.Expires(),
	})
}
