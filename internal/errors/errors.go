// Package errors defines the structured API error shared by the demo server
// and the API client.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeAuth        ErrorType = "authentication"
	ErrorTypeAuthorize   ErrorType = "authorization"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnavailable ErrorType = "service_unavailable"
	ErrorTypeTransport   ErrorType = "transport"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *APIError) Unwrap() error { return e.err }

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func newError(t ErrorType, code int, msg string, err error) *APIError {
	return &APIError{Type: t, Message: msg, Code: code, err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, msg, err)
}

// NewStorageError creates a new storage error
func NewStorageError(msg string, err error) *APIError {
	return newError(ErrorTypeStorage, http.StatusInternalServerError, msg, err)
}

// NewAuthError creates a new authentication error
func NewAuthError(msg string, err error) *APIError {
	return newError(ErrorTypeAuth, http.StatusUnauthorized, msg, err)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(msg string, err error) *APIError {
	return newError(ErrorTypeAuthorize, http.StatusForbidden, msg, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, msg, err)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(msg string, err error) *APIError {
	return newError(ErrorTypeRateLimit, http.StatusTooManyRequests, msg, err)
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, msg, err)
}

// NewUnavailableError creates a new service unavailable error
func NewUnavailableError(msg string, err error) *APIError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable, msg, err)
}

// NewTransportError wraps a failure to reach the server at all.
func NewTransportError(msg string, err error) *APIError {
	return newError(ErrorTypeTransport, 0, msg, err)
}

// FromStatus classifies an HTTP error status returned by a remote server.
func FromStatus(code int, msg string) *APIError {
	switch {
	case code == http.StatusUnauthorized:
		return newError(ErrorTypeAuth, code, msg, nil)
	case code == http.StatusForbidden:
		return newError(ErrorTypeAuthorize, code, msg, nil)
	case code == http.StatusNotFound:
		return newError(ErrorTypeNotFound, code, msg, nil)
	case code == http.StatusTooManyRequests:
		return newError(ErrorTypeRateLimit, code, msg, nil)
	case code >= 500:
		return newError(ErrorTypeUnavailable, code, msg, nil)
	default:
		return newError(ErrorTypeValidation, code, msg, nil)
	}
}

func typeOf(err error) (ErrorType, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Type, true
	}
	return "", false
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeNotFound
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeValidation
}

// IsAuth reports authentication and authorization failures.
func IsAuth(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrorTypeAuth || t == ErrorTypeAuthorize)
}

// IsTransient reports errors worth retrying on the next poll: transport
// failures, rate limiting, and server-side unavailability.
func IsTransient(err error) bool {
	t, ok := typeOf(err)
	if !ok {
		return false
	}
	switch t {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeUnavailable:
		return true
	}
	return false
}
