package api

import (
	"strings"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"

	rateLimitMessage = "Rate limit exceeded. Try again later."
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return writeError(c, fiber.StatusUnauthorized, "unauthorized", "Authorization header is required", nil)
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return writeError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid authorization header format. Use: Bearer <token>", nil)
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return writeError(c, fiber.StatusUnauthorized, "unauthorized", "Token is required", nil)
		}

		claims, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// callerID returns the authenticated user ID, or "" outside AuthMiddleware.
func callerID(c *fiber.Ctx) string {
	claims, ok := c.Locals(UserContextKey).(*userdomain.Claims)
	if !ok || claims == nil {
		return ""
	}
	return claims.UserID
}

// clientIP keys rate limiting on the first X-Forwarded-For hop, falling back to
// the peer address.
func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// RateLimiter allows max requests per window for each client IP. Health checks are
// never limited. A nil storage keeps counters in memory.
func RateLimiter(cfg limiter.Config, storage fiber.Storage) fiber.Handler {
	cfg.Next = func(c *fiber.Ctx) bool {
		return c.Path() == "/health"
	}
	cfg.KeyGenerator = clientIP
	cfg.LimitReached = func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"status":  fiber.StatusTooManyRequests,
			"message": rateLimitMessage,
		})
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return limiter.New(cfg)
}
