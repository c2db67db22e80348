// Package apperr provides typed errors that carry their HTTP status, so
// handlers report failures explicitly instead of answering 200.
package apperr

import (
	"fmt"
	"net/http"
)

// Type is the category of an error.
type Type string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation Type = "validation"
	// TypeUnauthorized indicates missing or invalid credentials (HTTP 401)
	TypeUnauthorized Type = "unauthorized"
	// TypeUnavailable indicates a temporarily exhausted dependency (HTTP 503)
	TypeUnavailable Type = "unavailable"
	// TypeInternal indicates a server-side failure (HTTP 500)
	TypeInternal Type = "internal"
)

type Error struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to a status code.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithContext adds a context field (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Response is the JSON body written for an error.
type Response struct {
	Error   string         `json:"error"`
	Type    Type           `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse never exposes Cause; internal details stay in the logs.
func (e *Error) ToResponse() Response {
	return Response{Error: e.Message, Type: e.Type, Context: e.Context}
}

func newError(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return newError(TypeValidation, message, nil)
}

func Unauthorized(message string) *Error {
	return newError(TypeUnauthorized, message, nil)
}

func Unavailable(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

func Internal(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}
