// Package apperror provides the domain error types for Quill. Every error
// carries an HTTP status code and a client-safe message; the Echo error
// handler maps them to JSON responses automatically.
//
// NEVER return raw database, crypto, or upstream errors to the client.
// Wrap them in an apperror type so only the safe message escapes.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 401, 409, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "conflict").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for the error taxonomy ---

// NewValidation creates a 400 Bad Request error for malformed or missing input.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "validation",
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error. Callers must use the
// same generic message for every failed credential or token check so the
// response never reveals which check failed.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewConflict creates a 409 Conflict error for uniqueness violations.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// NewBadGateway creates a 502 error for upstream service failures (e.g. the
// AI completion provider returning an unusable response).
func NewBadGateway(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Type:    "bad_gateway",
		Message: message,
	}
}

// NewStatus creates an error with an arbitrary HTTP status code. Used when
// passing through an upstream provider's status.
func NewStatus(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Type:    "upstream",
		Message: message,
	}
}

// SafeMessage returns the client-safe message from an error. For any error
// that is not an AppError a generic message is returned to prevent leaking
// internal details like query structure or stack traces.
func SafeMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
