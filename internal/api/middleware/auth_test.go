package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

func runAuth(t *testing.T, apiKey string, security *logger.SecurityLogger, req *http.Request) error {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := APIKeyAuth(apiKey, security)(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return handler(c)
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	requireUnauthorized(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	requireUnauthorized(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	assert.NoError(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_RawKeyWithoutBearerPrefix(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	req.Header.Set("Authorization", testAPIKey)
	assert.NoError(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_AccessTokenQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/ws?access_token="+testAPIKey, nil)
	assert.NoError(t, runAuth(t, testAPIKey, nil, req))

	req = httptest.NewRequest(http.MethodGet, "/api/admin/ws?access_token=nope", nil)
	requireUnauthorized(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_HeaderTakesPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/ws?access_token="+testAPIKey, nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	requireUnauthorized(t, runAuth(t, testAPIKey, nil, req))
}

func TestAPIKeyAuth_NoAPIKeyConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	assert.NoError(t, runAuth(t, "", nil, req))
}

func TestAPIKeyAuth_LogsFailureWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	security := logger.NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer guessed-secret")
	requireUnauthorized(t, runAuth(t, testAPIKey, security, req))

	out := buf.String()
	assert.Contains(t, out, "authentication_failure")
	assert.Contains(t, out, "/api/admin/stats")
	assert.NotContains(t, out, "guessed-secret")
	assert.NotContains(t, out, testAPIKey)
}

func TestAPIKeyAuth_WarnsWhenUnsecured(t *testing.T) {
	var buf bytes.Buffer
	security := logger.NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	APIKeyAuth("", security)
	assert.Contains(t, buf.String(), "UNSECURED")
}
