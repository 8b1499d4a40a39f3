package middleware

import (
	"errors"
	"time"

	"catalog/internal/errs"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured line per request. Errors returned by
// the handler chain have not been rendered yet, so the logged status is
// derived from the error itself.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := responseStatus(c, err)

		var e *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			e = log.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			e = log.Warn()
		default:
			e = log.Info()
		}

		if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
			e = e.Str("request_id", requestID)
		}
		if subject, ok := c.Locals(LocalSubject).(string); ok && subject != "" {
			e = e.Str("subject", subject)
		}

		e.Dur("latency", time.Since(start)).
			Int("status", status).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Msg("API")

		return err
	}
}

func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
