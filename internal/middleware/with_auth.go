package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	RequireUser bool
}

// WithAuth wraps a handler with authentication guards. It is used where the
// handler runs outside the normal response path, such as a WebSocket upgrade.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if opts.RequireUser {
			if userID, _ := c.Locals("user_id").(string); strings.TrimSpace(userID) == "" {
				return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
			}
		}
		return handler(c)
	}
}
