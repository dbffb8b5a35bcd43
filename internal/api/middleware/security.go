package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

// rateLimiterExpiry is how long an idle client's limiter is kept.
const rateLimiterExpiry = 3 * time.Minute

// SecurityConfig holds configuration for security middleware.
type SecurityConfig struct {
	AllowedOrigins []string
}

// NewCORS creates a CORS middleware for the JSON API.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}

// NewSecureHeaders sets standard security headers on every response.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	})
}

// NewBodyLimit creates a middleware that limits the request body size, e.g. "10M".
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// NewRequestTimeout cancels the request context after timeout. A zero timeout
// disables the middleware.
func NewRequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return passthrough
	}
	return middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: timeout,
	})
}

// NewRateLimiter limits each client IP to requestsPerSecond with the given burst.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond float64, burst int, m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	if requestsPerSecond <= 0 {
		return passthrough
	}
	if burst <= 0 {
		burst = int(requestsPerSecond) + 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(requestsPerSecond),
				Burst:     burst,
				ExpiresIn: rateLimiterExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, map[string]string{
				"error":   "rate-limit",
				"message": "cannot identify client",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			if m != nil {
				m.RecordRateLimited()
			}
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error":   "rate-limit",
				"message": "too many requests, please slow down",
			})
		},
	})
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return next
}
