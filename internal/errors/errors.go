package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidRequest indicates a request that is not an intake operation
	// or whose payload could not be parsed
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidInput indicates a missing or malformed field
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates the client is still inside its cooldown window
	ErrRateLimited = errors.New("rate limited")

	// ErrDeliveryFailed indicates the primary notification could not be sent
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeDeliveryFailed = "DELIVERY_FAILED"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeInternalError  = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// FieldEmail is the field name reported for a malformed address
const FieldEmail = "email"

// ValidationError reports the first field that failed validation
type ValidationError struct {
	Field string
	// Missing is true when the field was absent or blank, false when it
	// was present but malformed
	Missing bool
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if !e.Missing && e.Field == FieldEmail {
		return "Invalid email address"
	}
	if !e.Missing {
		return fmt.Sprintf("Field '%s' is invalid", e.Field)
	}
	return fmt.Sprintf("Field '%s' is required", e.Field)
}

// Unwrap returns ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewRequiredFieldError reports a missing required field
func NewRequiredFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Missing: true}
}

// NewInvalidEmailError reports a malformed email address
func NewInvalidEmailError() *ValidationError {
	return &ValidationError{Field: FieldEmail}
}

// RateLimitError reports a submission inside the client's cooldown window
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return "Please wait before submitting another message"
}

// Unwrap returns ErrRateLimited
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// DeliveryError reports a failed primary delivery with a diagnostic hint
type DeliveryError struct {
	Err  error
	Hint string
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return "delivery failed"
}

// Unwrap returns both ErrDeliveryFailed and the transport error
func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeliveryFailed}
	}
	return []error{ErrDeliveryFailed, e.Err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if the error is a cooldown rejection
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsDeliveryFailed checks if the error is a primary delivery failure
func IsDeliveryFailed(err error) bool {
	return errors.Is(err, ErrDeliveryFailed)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case IsInvalidInput(err):
		return CodeInvalidInput
	case IsRateLimited(err):
		return CodeRateLimited
	case IsDeliveryFailed(err):
		return CodeDeliveryFailed
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Code != "" {
			return appErr.Code
		}
		return CodeInternalError
	}
}

// GetValidationError extracts a ValidationError from an error if it exists
func GetValidationError(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

// GetRateLimitError extracts a RateLimitError from an error if it exists
func GetRateLimitError(err error) *RateLimitError {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr
	}
	return nil
}

// GetDeliveryError extracts a DeliveryError from an error if it exists
func GetDeliveryError(err error) *DeliveryError {
	var dErr *DeliveryError
	if errors.As(err, &dErr) {
		return dErr
	}
	return nil
}
