package middleware

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
)

// Noop simply calls the next handler. It stands in for optional middleware
// that is switched off.
func Noop() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}

// Tracing starts a server span per request when enabled. Health and scrape
// endpoints are not traced.
func Tracing(enabled bool) fiber.Handler {
	if !enabled {
		return Noop()
	}
	return otelfiber.Middleware(
		otelfiber.WithNext(func(c *fiber.Ctx) bool {
			switch c.Path() {
			case "/health", "/healthz", "/metrics":
				return true
			}
			return false
		}),
	)
}
