package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoginRateLimit bounds login submissions per client IP across every console.
// The console lockout still applies on top of it.
func LoginRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 10, Window: time.Minute}
}

// ConsoleOpenRateLimit bounds how many consoles one client IP may open.
func ConsoleOpenRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 30, Window: time.Minute}
}

// TrackingRateLimit bounds storefront view and contact click events.
func TrackingRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 120, Window: time.Minute}
}

// ContactRateLimit bounds contact form submissions.
func ContactRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: time.Minute}
}

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(limitExceeded),
	)
}
