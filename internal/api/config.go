// Package api provides the HTTP server infrastructure for lungcheck.
// The JSON endpoints live in the v1 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration derived from settings.
type Config struct {
	Host string
	Port int

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration // per-request context deadline, 0 disables
	ShutdownTimeout time.Duration

	BodyLimit string  // e.g. "10M"
	RateLimit float64 // requests per second per client IP, 0 disables
	RateBurst int

	MetricsEnabled bool
	MetricsPath    string
}

// ConfigFromSettings creates a Config from application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	ws := settings.WebServer
	cfg := &Config{
		Host:            ws.Host,
		Port:            ws.Port,
		AllowedOrigins:  ws.CORSOrigins,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		RequestTimeout:  ws.RequestTimeout,
		ShutdownTimeout: ws.ShutdownGrace,
		BodyLimit:       ws.BodyLimit,
		RateLimit:       ws.RateLimit,
		RateBurst:       ws.RateBurst,
		MetricsEnabled:  settings.Metrics.Enabled,
		MetricsPath:     settings.Metrics.Path,
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	// uploads must be fully read before the write deadline starts counting
	if cfg.RequestTimeout > 0 && cfg.WriteTimeout < cfg.RequestTimeout {
		cfg.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "10M"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return cfg
}

// Address returns the listen address in host:port form.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}
