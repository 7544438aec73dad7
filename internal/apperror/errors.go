// Package apperror provides the error taxonomy of the auth service.  Each
// error carries an HTTP status code, a machine-readable type and a message
// that is safe to show to clients.  The echo error handler turns them into
// the JSON envelope.
//
// Raw database, cache or broker errors are never returned to the client;
// they are wrapped with NewInternal and only logged server-side.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic client-facing messages.
const (
	MsgTooManyAttempts = "Too many attempts. Please try again later."
	MsgInternal        = "Internal server error"
	MsgUnauthorized    = "Unauthorized access"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code (e.g., 401, 409, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "rate_limited").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Detail is an optional second line for the envelope's error field.
	Detail string `json:"-"`

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

// WithDetail returns a copy carrying a client-safe detail line.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// NewValidation creates a 400 error for malformed input.
func NewValidation(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: "validation_error", Message: message}
}

// NewBadRequest creates a 400 error with a custom type, used for domain
// preconditions that are not plain input validation (e.g. "no_pending_data").
func NewBadRequest(typ, message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: typ, Message: message}
}

// NewUnauthorized creates a 401 error for bad credentials or tokens.
func NewUnauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: "unauthorized", Message: message}
}

// NewForbidden creates a 403 error.
func NewForbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Type: "forbidden", Message: message}
}

// NewConflict creates a 409 error for duplicate registrations.
func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Type: "conflict", Message: message}
}

// NewTooLarge creates a 413 error for oversized request bodies.
func NewTooLarge(maxBytes int64) *AppError {
	return &AppError{
		Code:    http.StatusRequestEntityTooLarge,
		Type:    "payload_too_large",
		Message: fmt.Sprintf("Request body too large. Maximum size: %d bytes", maxBytes),
	}
}

// NewRateLimited creates a 429 error.  The message never says which
// counter tripped.
func NewRateLimited() *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Type: "rate_limited", Message: MsgTooManyAttempts}
}

// NewInternal creates a 500 error. The real error is stored in Internal for
// logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  MsgInternal,
		Internal: err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// SafeMessage returns the client-safe error message from an error. For any
// error that is not an AppError a generic message is returned.
func SafeMessage(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return MsgInternal
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
