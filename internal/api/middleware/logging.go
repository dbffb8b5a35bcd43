// Package middleware provides the HTTP middleware stack of the lungcheck server.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/lungcheck/internal/logger"
	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

// NewRequestID assigns a UUID to each request unless the client supplied one.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// NewRequestLogger logs one line per request and records HTTP metrics when m is set.
func NewRequestLogger(log logger.Logger, m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, m, nil)
}

// NewRequestLoggerWithSkipper is NewRequestLogger with a custom skipper.
func NewRequestLoggerWithSkipper(log logger.Logger, m *metrics.HTTPMetrics, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:          skipper,
		LogStatus:        true,
		LogURI:           true,
		LogMethod:        true,
		LogLatency:       true,
		LogRemoteIP:      true,
		LogError:         true,
		LogRequestID:     true,
		LogRoutePath:     true,
		LogResponseSize:  true,
		LogContentLength: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if m != nil {
				m.RecordHTTPRequest(v.Method, v.RoutePath, v.Status, v.Latency.Seconds(), v.ResponseSize)
				if v.Status >= 400 {
					m.RecordHTTPRequestError(v.Method, v.RoutePath, statusClass(v.Status))
				}
			}
			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
				logger.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			ctx := logger.WithTraceID(c.Request().Context(), v.RequestID)
			reqLog := log.WithContext(ctx)
			switch {
			case v.Status >= 500:
				reqLog.Error("request", fields...)
			case v.Status >= 400:
				reqLog.Warn("request", fields...)
			default:
				reqLog.Info("request", fields...)
			}
			return nil
		},
	})
}

func statusClass(status int) string {
	if status >= 500 {
		return "server"
	}
	return "client"
}
