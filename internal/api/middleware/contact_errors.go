package middleware

import (
	"errors"
	"net/http"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api/response"
	"github.com/labstack/echo/v4"
)

// Contact form replies for requests stopped before the handler
const (
	MessageThrottled = "Please wait before submitting another message"
	MessageTooLarge  = "Message is too large"
)

// ContactErrors renders HTTP errors raised further down the contact chain
// (throttle, body limit) as {success:false, message}. It must run first.
func ContactErrors() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil || c.Response().Committed {
				return err
			}

			var he *echo.HTTPError
			if !errors.As(err, &he) {
				return err
			}
			return response.ContactFailure(c, he.Code, contactMessage(he))
		}
	}
}

func contactMessage(he *echo.HTTPError) string {
	switch he.Code {
	case http.StatusTooManyRequests:
		return MessageThrottled
	case http.StatusRequestEntityTooLarge:
		return MessageTooLarge
	}
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}
