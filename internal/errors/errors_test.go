package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppError_CreatesErrorWithCorrectFields(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "custom message", CodeNotFound)

	assert.Equal(t, baseErr, appErr.Err)
	assert.Equal(t, "custom message", appErr.Message)
	assert.Equal(t, CodeNotFound, appErr.Code)
}

func TestAppError_Error_ReturnsBaseErrorWhenNoMessage(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "", CodeNotFound)

	assert.Equal(t, "base error", appErr.Error())
}

func TestWrap_WrapsErrorWithContext(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := Wrap(baseErr, "context")

	assert.Contains(t, wrapped.Error(), "context")
	assert.True(t, errors.Is(wrapped, baseErr))
}

func TestWrap_ReturnsNilForNilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
}

func TestValidationError_Messages(t *testing.T) {
	assert.Equal(t, "Field 'subject' is required", NewRequiredFieldError("subject").Error())
	assert.Equal(t, "Invalid email address", NewInvalidEmailError().Error())
	assert.Equal(t, "Field 'name' is invalid", (&ValidationError{Field: "name"}).Error())
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewRequiredFieldError("name"))

	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, CodeInvalidInput, GetErrorCode(err))

	vErr := GetValidationError(err)
	if assert.NotNil(t, vErr) {
		assert.Equal(t, "name", vErr.Field)
		assert.True(t, vErr.Missing)
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{RetryAfter: 41500 * time.Millisecond}

	assert.True(t, IsRateLimited(err))
	assert.Equal(t, CodeRateLimited, GetErrorCode(err))
	assert.Equal(t, 42, err.RetryAfterSeconds())
	assert.Contains(t, err.Error(), "wait")
}

func TestRateLimitError_RetryAfterNeverBelowOne(t *testing.T) {
	assert.Equal(t, 1, (&RateLimitError{}).RetryAfterSeconds())
}

func TestDeliveryError_UnwrapsBoth(t *testing.T) {
	transport := errors.New("connection refused")
	err := &DeliveryError{Err: transport, Hint: "check SMTP settings"}

	assert.True(t, IsDeliveryFailed(err))
	assert.True(t, errors.Is(err, transport))
	assert.Equal(t, CodeDeliveryFailed, GetErrorCode(err))
	assert.Same(t, err, GetDeliveryError(fmt.Errorf("wrapped: %w", err)))
}

func TestDeliveryError_WithoutCause(t *testing.T) {
	err := &DeliveryError{Hint: "x"}
	assert.True(t, IsDeliveryFailed(err))
	assert.Equal(t, "delivery failed", err.Error())
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound, CodeNotFound},
		{"invalid request", fmt.Errorf("decode: %w", ErrInvalidRequest), CodeInvalidRequest},
		{"unauthorized", ErrUnauthorized, CodeUnauthorized},
		{"forbidden", ErrForbidden, CodeForbidden},
		{"app error code", NewAppError(errors.New("x"), "", "CUSTOM"), "CUSTOM"},
		{"unknown", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}

func TestGetHelpers_ReturnNilForOtherErrors(t *testing.T) {
	err := errors.New("plain")
	assert.Nil(t, GetValidationError(err))
	assert.Nil(t, GetRateLimitError(err))
	assert.Nil(t, GetDeliveryError(err))
}
