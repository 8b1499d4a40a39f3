package handlers

import (
	"errors"
	"net/http"
	"strings"

	"catalog/internal/errs"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler is the single place where errors become responses.
// *errs.HTTPError carries its own status and body; Fiber's routing errors keep
// their code; anything else is an unexpected failure and is answered with a
// generic 500 while the details go to the log.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var httpErr *errs.HTTPError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &httpErr):
		case errors.As(err, &fiberErr):
			httpErr = fromFiberError(fiberErr)
		default:
			httpErr = errs.NewInternalError(err)
		}

		if httpErr.Status >= fiber.StatusInternalServerError {
			log.Error().Err(err).
				Str("kind", string(httpErr.Kind)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg(httpErr.Message)
		}

		return c.Status(httpErr.Status).JSON(httpErr)
	}
}

func fromFiberError(e *fiber.Error) *errs.HTTPError {
	switch e.Code {
	case fiber.StatusNotFound:
		return errs.NewNotFoundError(e.Message)
	case fiber.StatusTooManyRequests:
		return errs.NewTooManyRequestsError()
	}
	message := e.Message
	if message == "" {
		message = http.StatusText(e.Code)
	}
	kind := errs.Kind(strings.ToUpper(strings.ReplaceAll(http.StatusText(e.Code), " ", "_")))
	return &errs.HTTPError{Kind: kind, Message: message, Status: e.Code}
}
