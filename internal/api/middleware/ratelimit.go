package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdleTTL is how long an idle client's limiter is kept.
const DefaultLimiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages rate limiters per IP address
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
	}
}

// GetLimiter returns the rate limiter for the given IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// CleanupOldEntries drops limiters not used since before the cutoff.
func (i *IPRateLimiter) CleanupOldEntries(cutoff time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, entry := range i.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// RunCleanup evicts idle limiters every ttl until ctx is done.
func (i *IPRateLimiter) RunCleanup(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			i.CleanupOldEntries(now.Add(-ttl))
		}
	}
}

// RateLimiter returns request throttling middleware backed by limiter.
// Throttled requests get 429 with a Retry-After of one second.
func RateLimiter(limiter *IPRateLimiter, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if !limiter.GetLimiter(ip).Allow() {
				if security != nil {
					security.RateLimitExceeded(ip, c.Request().URL.Path)
				}

				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
					"error":       "rate limit exceeded",
					"code":        "RATE_LIMITED",
					"retry_after": "1",
				})
			}

			return next(c)
		}
	}
}

// RateLimiterWithConfig returns rate limiting middleware with its own limiter
func RateLimiterWithConfig(requestsPerSecond float64, burst int, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return RateLimiter(NewIPRateLimiter(rate.Limit(requestsPerSecond), burst), security)
}
