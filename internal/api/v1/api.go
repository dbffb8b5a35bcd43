// Package api implements the v1 JSON endpoints of the lungcheck service.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/diagnosis"
	"github.com/tphakala/lungcheck/internal/logger"
)

// DefaultHistoryLimit applies when the limit query parameter is absent.
const DefaultHistoryLimit = 10

// DiagnosisService is the part of diagnosis.Service the handlers use.
type DiagnosisService interface {
	Submit(ctx context.Context, up diagnosis.Upload) (diagnosis.DTO, error)
	History(ctx context.Context, limit int) ([]diagnosis.DTO, error)
}

// ModelStatus is the classifier state reported by the health endpoint.
type ModelStatus struct {
	Ready   bool
	Trained bool
	Device  string
	Backend string
}

// Pinger checks a dependency such as the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller manages the v1 routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	service      DiagnosisService
	modelStatus  func() ModelStatus
	database     Pinger
	historyCache *HistoryCache
	logger       logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithModelStatus sets the source of classifier state for the health endpoint.
func WithModelStatus(fn func() ModelStatus) Option {
	return func(c *Controller) {
		c.modelStatus = fn
	}
}

// WithDatabase adds a database check to the health endpoint.
func WithDatabase(p Pinger) Option {
	return func(c *Controller) {
		c.database = p
	}
}

// WithHistoryCache caches history responses. The cache must be invalidated by the
// diagnosis service on every append, see HistoryCache.Invalidate.
func WithHistoryCache(hc *HistoryCache) Option {
	return func(c *Controller) {
		c.historyCache = hc
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller and registers its routes under the configured prefix.
func New(e *echo.Echo, settings *conf.Settings, service DiagnosisService, opts ...Option) *Controller {
	c := &Controller{
		Echo:     e,
		Settings: settings,
		service:  service,
		logger:   GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group(settings.API.LungCheckPrefix())
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.POST("/predict", c.Predict)
	c.Group.GET("/history", c.GetHistory)
	c.Group.GET("/health", c.HealthCheck)
}

// HealthCheck reports classifier readiness and, when configured, database reachability.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK

	if c.modelStatus != nil {
		m := c.modelStatus()
		resp.Ready = m.Ready
		resp.Trained = m.Trained
		resp.Device = m.Device
		resp.Backend = m.Backend
		if !m.Ready {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if c.database != nil {
		if err := c.database.Ping(ctx.Request().Context()); err != nil {
			c.logger.Warn("health check database ping failed", logger.Error(err))
			resp.Database = "unreachable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	return ctx.JSON(status, resp)
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Trained  bool   `json:"trained"`
	Device   string `json:"device,omitempty"`
	Backend  string `json:"backend,omitempty"`
	Database string `json:"database,omitempty"`
}
