package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/auth"
	"habilitaciones/internal/http/middleware"
	"habilitaciones/internal/intake"
	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
	"habilitaciones/internal/service"
	"habilitaciones/internal/storage"
	"habilitaciones/internal/uploader"
)

var (
	errInvalidID   = errors.New("invalid id format")
	errInvalidBody = errors.New("invalid request body")
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fields and Attachments name what blocks a submit.
	Fields      []string `json:"fields,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeEnvelope(c, status, errorEnvelope{Code: code, Message: message})
}

func writeEnvelope(c *fiber.Ctx, status int, env errorEnvelope) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     env,
	})
}

// writeDomainError translates errors from the domain packages. Anything it
// does not recognise becomes a 500 with no details.
func writeDomainError(c *fiber.Ctx, err error) error {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		return writeEnvelope(c, fiber.StatusBadRequest, errorEnvelope{
			Code:        "VALIDATION_FAILED",
			Message:     verr.Error(),
			Fields:      verr.Fields,
			Attachments: verr.Attachments,
		})
	}

	switch {
	case errors.Is(err, errInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, errInvalidBody):
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")

	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "submission not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, model.ErrInvalidStatus):
		return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "invalid status")
	case errors.Is(err, repository.ErrInvalidSort):
		return writeError(c, fiber.StatusBadRequest, "INVALID_SORT", "invalid sort field or direction")
	case errors.Is(err, repository.ErrInvalidCursor):
		return writeError(c, fiber.StatusBadRequest, "INVALID_CURSOR", "invalid cursor")

	case errors.Is(err, intake.ErrDraftNotFound):
		return writeError(c, fiber.StatusNotFound, "DRAFT_NOT_FOUND", "form not found or expired")
	case errors.Is(err, intake.ErrAttachmentAbsent):
		return writeError(c, fiber.StatusNotFound, "ATTACHMENT_NOT_FOUND", "attachment not found")
	case errors.Is(err, intake.ErrUnknownField):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	case errors.Is(err, intake.ErrUnknownSlot):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_SLOT", "unknown attachment slot")
	case errors.Is(err, intake.ErrFirstSection), errors.Is(err, intake.ErrLastSection), errors.Is(err, intake.ErrNotLastSection):
		return writeError(c, fiber.StatusConflict, "INVALID_SECTION", err.Error())
	case errors.Is(err, intake.ErrSubmitted):
		return writeError(c, fiber.StatusConflict, "ALREADY_SUBMITTED", "form already submitted")
	case errors.Is(err, intake.ErrSubmitting):
		return writeError(c, fiber.StatusConflict, "SUBMIT_IN_PROGRESS", "form is being submitted")

	case errors.Is(err, uploader.ErrFileTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the 10MB limit")
	case errors.Is(err, uploader.ErrEmptyName):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file name is required")
	case errors.Is(err, storage.ErrObjectNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")

	case errors.Is(err, auth.ErrInvalidState):
		return writeError(c, fiber.StatusBadRequest, "INVALID_STATE", "sign-in expired, start again")
	case errors.Is(err, auth.ErrNotConfigured):
		return writeError(c, fiber.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "sign-in is not configured")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid session")
	}

	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "sign-in required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
