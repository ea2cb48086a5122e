// Package response renders the JSON envelopes of the HTTP API.
package response

import (
	"net/http"
	"strconv"

	apperrors "github.com/exposingwithjay/cybersentinel-backend/internal/errors"
	"github.com/labstack/echo/v4"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    Meta        `json:"meta"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// ContactResponse is the envelope the public contact form reads
type ContactResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ID            string `json:"id,omitempty"`
	AutoReplySent *bool  `json:"auto_reply_sent,omitempty"`
	Debug         string `json:"debug,omitempty"`
}

// Success returns a successful response with data
func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Paginated returns a paginated response
func Paginated(c echo.Context, data interface{}, total int64, limit, offset int) error {
	return c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Meta: Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Error returns an error response with appropriate status code
func Error(c echo.Context, err error) error {
	code := apperrors.GetErrorCode(err)
	status := getHTTPStatus(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the server log.
		message = "internal server error"
	}

	return c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeInvalidInput,
	})
}

// NotFound returns a 404 Not Found response
func NotFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeNotFound,
	})
}

// InternalError returns a 500 Internal Server Error response
func InternalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeInternalError,
	})
}

// ContactAccepted returns the 200 reply of an accepted submission
func ContactAccepted(c echo.Context, id, message string, autoReplySent bool) error {
	return c.JSON(http.StatusOK, ContactResponse{
		Success:       true,
		Message:       message,
		ID:            id,
		AutoReplySent: &autoReplySent,
	})
}

// ContactFailure returns a contact form failure with the given status
func ContactFailure(c echo.Context, status int, message string) error {
	return c.JSON(status, ContactResponse{
		Success: false,
		Message: message,
	})
}

// ContactRateLimited returns 429 with a Retry-After header in seconds
func ContactRateLimited(c echo.Context, retryAfterSeconds int, message string) error {
	c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	return ContactFailure(c, http.StatusTooManyRequests, message)
}

// ContactDeliveryFailed returns 500 with a diagnostic hint
func ContactDeliveryFailed(c echo.Context, message, debug string) error {
	return c.JSON(http.StatusInternalServerError, ContactResponse{
		Success: false,
		Message: message,
		Debug:   debug,
	})
}

// getHTTPStatus maps error codes to HTTP status codes
func getHTTPStatus(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput, apperrors.CodeInvalidRequest:
		return http.StatusBadRequest
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
