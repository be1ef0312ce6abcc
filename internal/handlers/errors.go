package handlers

import (
	"errors"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondError translates service errors into HTTP responses. Unknown errors
// are logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return c.Status(statusForKind(svcErr.Kind)).JSON(fiber.Map{"error": svcErr.Message})
	}

	if errors.Is(err, services.ErrPaymentsDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Payments are not configured"})
	}

	logger.WithFields(logrus.Fields{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("request_id"),
		"error":      err.Error(),
	}).Error("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func statusForKind(kind error) int {
	switch {
	case errors.Is(kind, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(kind, services.ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(kind, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(kind, services.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// requirePrincipal reads the authenticated caller. Callers answer with
// invalidToken when ok is false.
func requirePrincipal(c *fiber.Ctx) (auth.Principal, bool) {
	return auth.PrincipalFrom(c)
}

func invalidToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}
