package api

import (
	"errors"
	"strings"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/user"
	"github.com/gofiber/fiber/v2"
)

// identityKey is the Fiber locals key holding the caller's user.Identity.
const identityKey = "identity"

// authenticate validates the bearer token and stores the caller's identity.
func (m *APIModule) authenticate(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Authorization header is required",
		})
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid authorization header format. Use: Bearer <token>",
		})
	}

	identity, err := m.accounts.ValidateToken(c.UserContext(), strings.TrimSpace(token))
	if err != nil {
		if !errors.Is(err, apperr.ErrUnauthorized) {
			m.logger.Warn("Token validation failed", "error", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// requireRole rejects callers whose role differs from role.
// It must run after authenticate.
func requireRole(role user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identityFrom(c).Role != role {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Access denied: " + string(role) + " only",
			})
		}
		return c.Next()
	}
}

func identityFrom(c *fiber.Ctx) user.Identity {
	identity, _ := c.Locals(identityKey).(user.Identity)
	return identity
}

// fail writes err as a JSON error with the status its kind maps to.
func (m *APIModule) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		m.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Internal Server Error",
		})
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   string(apperr.KindOf(err)),
		Message: err.Error(),
	})
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindInvalidTransition, apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindInvalid:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
