package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/auth"
)

// ClaimsLocalKey is the key the verified session claims are stored under.
const ClaimsLocalKey = "session_claims"

// Authenticator resolves a bearer token to its session claims.
type Authenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// RequireSession rejects requests without a valid "Authorization: Bearer"
// token with 401 and stores the claims in locals for the handlers.
func RequireSession(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session token")
		}
		claims, err := a.Authenticate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid session token")
		}
		c.Locals(ClaimsLocalKey, claims)
		return c.Next()
	}
}

// BearerToken returns the token of the Authorization header, or "".
func BearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// ClaimsFromCtx returns the claims stored by RequireSession.
func ClaimsFromCtx(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(ClaimsLocalKey).(*auth.Claims)
	return claims, ok && claims != nil
}
