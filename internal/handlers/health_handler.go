package handlers

import (
	"context"
	"errors"

	"catalog/internal/errs"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ReadinessChecker reports whether the service can serve traffic.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	checker ReadinessChecker
	log     zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker ReadinessChecker, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, log: log}
}

// RegisterRoutes registers /health and /health/ready.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleLiveness)
	router.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness always reports ok while the process serves requests.
func (h *HealthHandler) HandleLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// HandleReadiness pings the product store.
func (h *HealthHandler) HandleReadiness(c *fiber.Ctx) error {
	err := h.checker.Ready(c.UserContext())
	if err == nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	h.log.Warn().Err(err).Msg("readiness check failed")
	message := "Service unavailable"
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		message = httpErr.Message
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"ok":      false,
		"message": message,
	})
}
