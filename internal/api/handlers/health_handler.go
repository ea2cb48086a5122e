package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/database"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db, timeout: healthCheckTimeout}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) ping(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	return database.Ping(ctx, h.db)
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := map[string]string{"database": "healthy"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.ping(c); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if err := h.ping(c); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
