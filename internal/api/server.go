package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/lungcheck/internal/api/middleware"
	v1 "github.com/tphakala/lungcheck/internal/api/v1"
	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/logger"
	"github.com/tphakala/lungcheck/internal/observability"
	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

// Server is the HTTP server: echo, the middleware stack and the v1 routes.
type Server struct {
	echo       *echo.Echo
	config     *Config
	settings   *conf.Settings
	log        logger.Logger
	metrics    *observability.Metrics
	controller *v1.Controller
	ctrlOpts   []v1.Option
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics records HTTP metrics and exposes the registry.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithControllerOptions passes options through to the v1 controller.
func WithControllerOptions(opts ...v1.Option) ServerOption {
	return func(s *Server) {
		s.ctrlOpts = append(s.ctrlOpts, opts...)
	}
}

// New creates a Server with routes registered; it does not start listening.
func New(settings *conf.Settings, service v1.DiagnosisService, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:   config,
		settings: settings,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	s.controller = v1.New(s.echo, settings, service, s.ctrlOpts...)
	s.echo.HTTPErrorHandler = s.controller.HTTPErrorHandler

	if config.MetricsEnabled && s.metrics != nil {
		s.echo.GET(config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.String("api_prefix", settings.API.LungCheckPrefix()),
		logger.Bool("metrics", config.MetricsEnabled && s.metrics != nil))
	return s, nil
}

func (s *Server) setupMiddleware() {
	httpMetrics := s.httpMetrics()

	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, httpMetrics, func(c echo.Context) bool {
		return c.Path() == s.config.MetricsPath
	}))
	s.echo.Use(mw.NewCORS(mw.SecurityConfig{AllowedOrigins: s.config.AllowedOrigins}))
	s.echo.Use(mw.NewSecureHeaders())
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewRequestTimeout(s.config.RequestTimeout))
	s.echo.Use(mw.NewRateLimiter(s.config.RateLimit, s.config.RateBurst, httpMetrics))
}

func (s *Server) httpMetrics() *metrics.HTTPMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HTTP
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.String("address", ln.Addr().String()))
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server", logger.Duration("grace", s.config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server immediately within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
