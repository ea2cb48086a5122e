// Package middleware provides HTTP middleware for the CyberSentinel API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/labstack/echo/v4"
)

// AccessTokenParam carries the API key for clients that cannot set
// headers, such as browser WebSocket connections.
const AccessTokenParam = "access_token"

// APIKeyAuth validates the API key from the Authorization header.
// Uses constant-time comparison to prevent timing attacks.
// An empty apiKey disables the check.
func APIKeyAuth(apiKey string, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && security != nil {
		security.GetLogger().Warn("API_KEY not set - admin API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			token := bearerToken(c.Request())
			if token == "" {
				authFailure(c, security, "missing credentials")
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				authFailure(c, security, "invalid API key")
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "invalid API key",
					"code":  "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get(AccessTokenParam))
}

func authFailure(c echo.Context, security *logger.SecurityLogger, reason string) {
	if security != nil {
		security.AuthFailure(c.RealIP(), c.Request().URL.Path, reason)
	}
}
