package smartobjects

import (
	"errors"
	"fmt"
)

// Error types for the SmartObjects SDK

// ValidationError is returned when a request is rejected locally, before any
// network call is made. Message holds the exact, human-readable reason.
type ValidationError struct {
	Field   string
	Message string
	Value   any

	cause error
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap returns the sentinel behind a nil argument error, if any.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// AuthenticationError represents a failure to obtain an access token
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, err error) *AuthenticationError {
	return &AuthenticationError{Message: message, Err: err}
}

// APIError is returned when the platform answers with a non-2xx status once
// all retry attempts are spent. Body holds the raw response payload.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API error (status %d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
	}
	return fmt.Sprintf("API error (status %d) on %s %s", e.StatusCode, e.Method, e.Path)
}

// NewAPIError creates a new API error
func NewAPIError(statusCode int, method, path, body string) *APIError {
	return &APIError{StatusCode: statusCode, Method: method, Path: path, Body: body}
}

// TransportError represents a network level failure (connection refused,
// timeout, broken body) where no usable HTTP response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error
func NewTransportError(method, path string, err error) *TransportError {
	return &TransportError{Method: method, Path: path, Err: err}
}

// SerializationError is returned when a payload cannot be encoded or when the
// server returned a body that cannot be decoded into the expected type.
type SerializationError struct {
	Operation string // "encode" or "decode"
	Target    string
	Err       error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Target, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// NewSerializationError creates a new serialization error
func NewSerializationError(operation, target string, err error) *SerializationError {
	return &SerializationError{Operation: operation, Target: target, Err: err}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuthenticationError reports whether err is, or wraps, an *AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is, or wraps, an *APIError.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsSerializationError reports whether err is, or wraps, a *SerializationError.
func IsSerializationError(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}

// StatusCode returns the HTTP status carried by an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Sentinels for nil arguments. The SDK returns them wrapped in a fresh
// *ValidationError; match them with errors.Is.
var (
	ErrRequestNil = errors.New(ErrMsgRequestNil)
	ErrFieldNil   = errors.New(ErrMsgFieldNil)
)

func nilArgumentError(field string, sentinel error) *ValidationError {
	return &ValidationError{Field: field, Message: sentinel.Error(), cause: sentinel}
}
