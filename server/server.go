// Package server exposes the advisory pipeline over HTTP: a JSON query
// endpoint, an SSE streaming variant, and small read-only endpoints for
// sessions, agents, and workflow status.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/internal/profile"
	"github.com/agrisense/agrisense/metrics"
	"github.com/agrisense/agrisense/orchestrator"
	"github.com/agrisense/agrisense/session"
)

type Server struct {
	e            *echo.Echo
	profile      *profile.Profile
	orchestrator *orchestrator.Orchestrator
	registry     *agent.Registry
	sessions     *session.Manager
	exporter     *metrics.Exporter
	logger       *slog.Logger
}

// NewServer wires the HTTP layer around an already-built pipeline.
// exporter may be nil, which disables the /metrics endpoint.
func NewServer(p *profile.Profile, orch *orchestrator.Orchestrator, registry *agent.Registry, sessions *session.Manager, exporter *metrics.Exporter, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 120 * time.Second,
		Skipper: func(c echo.Context) bool {
			// Streaming responses manage their own lifetime.
			return c.Path() == "/api/v1/query/stream"
		},
	}))

	s := &Server{
		e:            e,
		profile:      p,
		orchestrator: orch,
		registry:     registry,
		sessions:     sessions,
		exporter:     exporter,
		logger:       logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", s.handleHealthz)
	if s.exporter != nil {
		s.e.GET("/metrics", echo.WrapHandler(s.exporter.Handler()))
	}

	v1 := s.e.Group("/api/v1")
	v1.POST("/query", s.handleQuery)
	v1.POST("/query/stream", s.handleQueryStream)
	v1.GET("/agents", s.handleListAgents)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)
	v1.GET("/workflows/:id", s.handleWorkflowStatus)
}

// Echo returns the underlying router, used by tests to drive handlers
// without a listener.
func (s *Server) Echo() *echo.Echo { return s.e }

func (s *Server) Start(addr string) error {
	s.logger.Info("server: listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(ctx); err != nil {
		s.logger.Error("server: shutdown failed", "error", err)
	}
	s.logger.Info("server: stopped")
}
