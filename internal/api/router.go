// Package api wires the HTTP surface of the CyberSentinel backend.
package api

import (
	"log/slog"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api/handlers"
	"github.com/exposingwithjay/cybersentinel-backend/internal/api/middleware"
	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/exposingwithjay/cybersentinel-backend/internal/services"
	ws "github.com/exposingwithjay/cybersentinel-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Route paths
const (
	ContactPath       = "/api/contact"
	LegacyContactPath = "/contact-handler.php"
	AdminPrefix       = "/api/admin"
	MetricsPath       = "/metrics"
)

// ContactBodyLimit caps contact form bodies. The longest accepted message
// is 10000 characters, so this leaves room for multi-byte text and JSON.
const ContactBodyLimit = "256K"

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB       *gorm.DB
	Intake   services.IntakeService
	Logs     repository.ContactLogRepository
	Hub      *ws.Hub
	Logger   *slog.Logger
	Security *logger.SecurityLogger
	// Gatherer backs GET /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer

	// Security configuration
	APIKey         string   // API key for the admin API (empty = disabled)
	AllowedOrigins []string // Allowed admin and websocket origins
	Production     bool
	RateLimit      float64 // Requests per second per client
	RateBurst      int
	// Limiter overrides the limiter built from RateLimit and RateBurst so
	// the caller can run its idle cleanup
	Limiter *middleware.IPRateLimiter
	// TrustProxy takes the client address from X-Forwarded-For
	TrustProxy bool
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	security := cfg.Security
	if security == nil {
		security = logger.NewSecurityLogger(log)
	}

	// Middleware order matters: recover first, then tag and log
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders(cfg.TrustProxy))
	e.Use(middleware.RequestLogger(log))

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	throttle := middleware.RateLimiter(limiter, security)

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	contactHandler := handlers.NewContactHandler(cfg.Intake, log)
	adminHandler := handlers.NewAdminHandler(cfg.Logs, cfg.Hub, ws.NewSecureUpgrader(cfg.AllowedOrigins, security), log)

	// Operations routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET(MetricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Public contact form
	contactMiddleware := []echo.MiddlewareFunc{
		middleware.ContactErrors(),
		middleware.ContactCORS(),
		middleware.BodyLimit(ContactBodyLimit),
		throttle,
	}
	e.Any(ContactPath, contactHandler.Submit, contactMiddleware...)
	e.Any(LegacyContactPath, contactHandler.Submit, contactMiddleware...)

	// Admin read API
	admin := e.Group(AdminPrefix)
	admin.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	admin.Use(throttle)
	admin.Use(middleware.APIKeyAuth(cfg.APIKey, security))

	admin.GET("/messages", adminHandler.ListMessages)
	admin.GET("/messages/:id", adminHandler.GetMessage)
	admin.GET("/log", adminHandler.ListLog)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/ws", adminHandler.Feed)

	return e
}
