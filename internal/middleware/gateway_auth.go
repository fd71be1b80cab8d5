package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlchemyApps/mindScript-sub006/pkg/response"
)

// GatewayAuthMiddleware reads user identity from X-User-* headers set by the
// gateway's ForwardAuth and populates Fiber context locals. Authentication
// itself happens upstream; this service only consumes the identity.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)

		return c.Next()
	}
}

// GetUserID extracts the user id from context locals.
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
