package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/logging"
)

// Logger logs each HTTP request as one JSON line with the fields
// request_id, method, path, status and latency (milliseconds, as float).
// request_id is taken from the locals set by RequestID.
func Logger(log *logging.Logger) fiber.Handler {
	if log == nil {
		log = logging.Nop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		log.Log(map[string]any{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     statusOf(c, err),
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		})

		return err
	}
}

// LoggerWithWriter is Logger writing to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc))
}

// statusOf is the status the error handler will answer with. Errors returned
// down the chain have not been rendered yet when middleware sees them.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
