package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oranet/oranet-backend/internal/pkg/usercontext"
)

// RequireAuth rejects requests without a logged-in session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !usercontext.IsLoggedIn(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Authentication required",
			})
		}
		return c.Next()
	}
}

// RequireAdmin rejects requests from non-admin sessions.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !usercontext.IsLoggedIn(c) || !usercontext.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}
