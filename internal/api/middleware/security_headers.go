package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Header values sent on every API response
const (
	// APIContentSecurityPolicy allows nothing: the API serves JSON, never documents.
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
	APIPermissionsPolicy     = "geolocation=(), microphone=(), camera=()"
	HSTSMaxAge               = 31536000
)

// SecureHeaders hardens every response: echo's Secure headers, no caching
// of submitter data and a closed permissions policy. HSTS is only sent on
// TLS requests; X-Forwarded-Proto counts only when trustProxy is set.
func SecureHeaders(trustProxy bool) echo.MiddlewareFunc {
	base := middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: APIContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	}
	tls := base
	tls.HSTSMaxAge = HSTSMaxAge

	plain := middleware.SecureWithConfig(base)
	secure := middleware.SecureWithConfig(tls)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		plainNext, secureNext := plain(next), secure(next)
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderCacheControl, "no-store")
			h.Set("Permissions-Policy", APIPermissionsPolicy)

			if c.IsTLS() || (trustProxy && c.Request().Header.Get(echo.HeaderXForwardedProto) == "https") {
				return secureNext(c)
			}
			// echo's Secure would trust X-Forwarded-Proto from anyone.
			c.Request().Header.Del(echo.HeaderXForwardedProto)
			return plainNext(c)
		}
	}
}
