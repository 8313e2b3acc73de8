// Package apperror defines the error taxonomy shared by the service layers.
// Failures crossing a layer boundary are wrapped into an *AppError carrying a
// category, a user-facing message and the underlying cause. Handlers map the
// category to an HTTP status; only the message reaches API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an application error.
type ErrorType int

const (
	// UnknownError is for unspecified failures.
	UnknownError ErrorType = iota
	// ValidationError marks a missing or malformed input field.
	ValidationError
	// NotFoundError marks a lookup for a resource that does not exist.
	NotFoundError
	// AuthenticationError marks rejected credentials.
	AuthenticationError
	// ForbiddenError marks an authenticated caller without permission.
	ForbiddenError
	// BackendError marks an unexpected failure talking to the identity backend.
	BackendError
	// UnavailableError marks a call rejected by the circuit breaker.
	UnavailableError
	// IOError marks a file-storage failure.
	IOError
	// InternalError is a generic internal server error.
	InternalError
)

// AppError is the error type exchanged between service layers.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for the error category.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthenticationError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case BackendError:
		return http.StatusBadGateway
	case UnavailableError:
		return http.StatusServiceUnavailable
	case IOError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewValidation(message string) *AppError {
	return New(ValidationError, message, nil)
}

func NewNotFound(message string, err error) *AppError {
	return New(NotFoundError, message, err)
}

func NewAuthentication(message string, err error) *AppError {
	return New(AuthenticationError, message, err)
}

func NewForbidden(message string) *AppError {
	return New(ForbiddenError, message, nil)
}

func NewBackend(message string, err error) *AppError {
	return New(BackendError, message, err)
}

func NewUnavailable(message string, err error) *AppError {
	return New(UnavailableError, message, err)
}

func NewIO(message string, err error) *AppError {
	return New(IOError, message, err)
}

func NewInternal(message string, err error) *AppError {
	return New(InternalError, message, err)
}

// ErrorResponse is the JSON error payload returned to API clients.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResponse strips the underlying cause, exposing only the message.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError extracts an *AppError from an error chain.
func FromError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func IsValidation(err error) bool     { return isType(err, ValidationError) }
func IsNotFound(err error) bool       { return isType(err, NotFoundError) }
func IsAuthentication(err error) bool { return isType(err, AuthenticationError) }
func IsForbidden(err error) bool      { return isType(err, ForbiddenError) }
func IsBackend(err error) bool        { return isType(err, BackendError) }
func IsUnavailable(err error) bool    { return isType(err, UnavailableError) }
func IsIO(err error) bool             { return isType(err, IOError) }
