package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AppError represents a domain-specific error with structured information and enhanced context
type AppError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Cause      error     `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

type requestIDKey struct{}

// ContextWithRequestID stores a request id for later attachment to errors
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithContext adds context information to the error
func (e *AppError) WithContext(ctx context.Context, operation string) *AppError {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		e.RequestID = id
	}
	e.Operation = operation
	return e
}

// Error codes for different error categories
const (
	ErrInvalidInput     = "INVALID_INPUT"     // 400 Bad Request
	ErrValidationFailed = "VALIDATION_FAILED" // 422 Unprocessable Entity
	ErrNotFound         = "NOT_FOUND"         // 404 Not Found
	ErrInternal         = "INTERNAL_ERROR"    // 500 Internal Server Error
	ErrTimeout          = "TIMEOUT"           // 408 Request Timeout
	ErrRateLimit        = "RATE_LIMIT"        // 429 Too Many Requests

	// Build coordination error codes
	ErrConfigInvalid    = "CONFIG_INVALID"    // fatal at startup
	ErrPathCollision    = "PATH_COLLISION"    // two surfaces claim one path
	ErrPortMissing      = "PORT_MISSING"      // build socket without a port in development
	ErrResolutionFailed = "RESOLUTION_FAILED" // alias target with a known extension is missing
	ErrTransport        = "TRANSPORT_ERROR"   // socket-level failure, logged only
	ErrBuildFailed      = "BUILD_FAILED"      // bundler reported errors
)

// NewAppError creates a new AppError with the specified parameters
func NewAppError(code, message string, statusCode int, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

// NewAppErrorWithCause creates a new AppError with underlying cause
func NewAppErrorWithCause(code, message string, statusCode int, cause error, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// NewConfigError creates a fatal configuration error
func NewConfigError(message string, details any) *AppError {
	return NewAppError(ErrConfigInvalid, message, 500, details)
}

// NewCollisionError reports a path claimed by two different watch reasons
func NewCollisionError(path string, existing, incoming WatchReason) *AppError {
	return NewAppError(ErrPathCollision, "Path is claimed by more than one surface", 500, map[string]any{
		"path":     path,
		"existing": existing.String(),
		"incoming": incoming.String(),
	})
}

// NewResolutionError reports a hard resolution failure for a specifier
func NewResolutionError(specifier, path string, cause error) *AppError {
	return NewAppErrorWithCause(ErrResolutionFailed, "Resolved path does not exist", 422, cause, map[string]any{
		"specifier": specifier,
		"path":      path,
	})
}

// HasCode reports whether err is an AppError carrying the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	return HasCode(err, ErrTimeout)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return HasCode(err, ErrNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return HasCode(err, ErrValidationFailed)
}

// IsConfigError checks if the error is one of the fatal configuration errors
func IsConfigError(err error) bool {
	return HasCode(err, ErrConfigInvalid) || HasCode(err, ErrPathCollision) || HasCode(err, ErrPortMissing)
}

// IsResolutionFailure checks if the error is a hard resolution failure
func IsResolutionFailure(err error) bool {
	return HasCode(err, ErrResolutionFailed)
}
