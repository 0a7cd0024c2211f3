package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wibookly/mailcore/internal/auth"
	"github.com/wibookly/mailcore/internal/cleanup"
	"github.com/wibookly/mailcore/internal/jobs"
)

// Server is the HTTP front of the service.
type Server struct {
	echo         *echo.Echo
	orchestrator *cleanup.Orchestrator
	runner       *jobs.Runner
	logger       *slog.Logger
}

// New assembles the HTTP server. registry may be nil, which disables the
// /metrics endpoint.
func New(resolver auth.Resolver, orchestrator *cleanup.Orchestrator, runner *jobs.Runner, registry *promclient.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:         e,
		orchestrator: orchestrator,
		runner:       runner,
		logger:       logger,
	}

	e.GET("/health", s.handleHealth)
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api/v1", bearerAuth(resolver))
	api.POST("/rules/cleanup", s.handleRuleCleanup)
	api.POST("/jobs/sync", s.handleSyncJob)

	return s
}

// Handler exposes the underlying handler, mainly for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// Start listens on the given address until Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info("starting http server", slog.String("address", address))
	return s.echo.Start(address)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
