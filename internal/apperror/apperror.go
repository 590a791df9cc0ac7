// Package apperror defines the failure taxonomy shared by the store, the
// repositories and the HTTP shell.
//
// Every error that crosses a package boundary either IS one of the sentinel
// errors below or wraps one, so callers can branch with errors.Is without
// parsing messages. The capability repositories reduce these to booleans for
// the UI, but the kind is still logged and counted (see Kind).
package apperror

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("transport error")
	ErrDecode       = errors.New("decode error")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized covers rejected credentials and missing or expired sessions.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Transport wraps a network failure or a server-side (5xx) error.
// The cause stays reachable through errors.Is / errors.As.
func Transport(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, cause)
}

// Decode wraps a response that does not match the expected record shape.
func Decode(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDecode, cause)
}

// Kind names the failure class of err for logs and metrics.
// It returns "" for a nil error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "internal"
	}
}
