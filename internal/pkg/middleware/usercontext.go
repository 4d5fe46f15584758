package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oranet/oranet-backend/internal/pkg/session"
	"github.com/oranet/oranet-backend/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a UserContext local once
// per request so downstream handlers never touch the session store directly.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := usercontext.UserContext{}

		if auth, ok := session.GetSessionValue(c, usercontext.AuthKey).(bool); ok && auth {
			ctx.IsLoggedIn = true
			if id, ok := session.GetSessionValue(c, usercontext.KeyUserID).(string); ok {
				ctx.UserID = id
			}
			if name, ok := session.GetSessionValue(c, usercontext.KeyUsername).(string); ok {
				ctx.Username = name
			}
			if admin, ok := session.GetSessionValue(c, usercontext.KeyIsAdmin).(bool); ok {
				ctx.IsAdmin = admin
			}
		}

		usercontext.SetUserContext(c, ctx)
		return c.Next()
	}
}
