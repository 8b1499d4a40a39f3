// Package errs defines the error types returned to API clients.
//
// Every failure that reaches the HTTP layer is either an *HTTPError or an
// unexpected error that the central responder turns into a generic 500.
package errs

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an HTTPError independently of its message.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindNotFound        Kind = "NOT_FOUND"
	KindInternal        Kind = "INTERNAL_ERROR"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindTooManyRequests Kind = "TOO_MANY_REQUESTS"
	KindUnavailable     Kind = "SERVICE_UNAVAILABLE"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// HTTPError is an error with a client-facing message and status code.
// Cause is kept for logging and never serialized.
type HTTPError struct {
	Kind    Kind         `json:"-"`
	Message string       `json:"message"`
	Status  int          `json:"-"`
	Errors  []FieldError `json:"errors,omitempty"`
	Cause   error        `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a 400 error carrying per-field details.
func NewValidationError(message string, fields []FieldError) *HTTPError {
	return &HTTPError{
		Kind:    KindValidation,
		Message: message,
		Status:  http.StatusBadRequest,
		Errors:  fields,
	}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *HTTPError {
	return &HTTPError{
		Kind:    KindNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewInternalError wraps cause in a 500 error. The message sent to clients is
// always the generic status text.
func NewInternalError(cause error) *HTTPError {
	return &HTTPError{
		Kind:    KindInternal,
		Message: "Internal error",
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError(message string) *HTTPError {
	return &HTTPError{
		Kind:    KindUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewTooManyRequestsError creates a 429 error.
func NewTooManyRequestsError() *HTTPError {
	return &HTTPError{
		Kind:    KindTooManyRequests,
		Message: http.StatusText(http.StatusTooManyRequests),
		Status:  http.StatusTooManyRequests,
	}
}

// NewUnavailableError creates a 503 error.
func NewUnavailableError(message string, cause error) *HTTPError {
	return &HTTPError{
		Kind:    KindUnavailable,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Cause:   cause,
	}
}

// IsKind reports whether err is an HTTPError of the given kind.
func IsKind(err error, kind Kind) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Kind == kind
}

// JoinFields renders field errors as "field: error; field: error".
func JoinFields(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return strings.Join(parts, "; ")
}
