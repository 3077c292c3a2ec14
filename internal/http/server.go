// Package http provides the HTTP API for answerd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/services"
)

// maxUtteranceRunes bounds a single utterance.
const maxUtteranceRunes = 2000

// Server provides HTTP endpoints for answerd.
type Server struct {
	echo     *echo.Echo
	services services.Registry
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// NewServer creates a new HTTP server.
func NewServer(reg services.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if reg == nil || reg.Session() == nil || reg.Knowledge() == nil {
		return nil, fmt.Errorf("services registry with session and knowledge store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		services: reg,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/ask", s.handleAsk)
	v1.POST("/teach", s.handleTeach)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	sess := s.services.Session()
	stats := s.services.Knowledge().Stats()

	status := "ok"
	if stats.Degraded {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:    status,
		Version:   s.config.Version,
		Knowledge: stats,
		Session: SessionStatus{
			ID:           sess.ID(),
			State:        sess.State(),
			Interactions: sess.Profile().Interactions,
			Turns:        len(sess.History()),
			Ended:        sess.Ended(),
		},
	})
}

// handleAsk routes one utterance through the conversation session.
func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Utterance) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "utterance field is required")
	}
	if utf8.RuneCountInString(req.Utterance) > maxUtteranceRunes {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("utterance exceeds %d characters", maxUtteranceRunes))
	}

	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = logging.WithRequestID(ctx, id)
	}

	reply, err := s.services.Session().Handle(ctx, req.Utterance)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
		}
		s.logger.Error("ask failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, reply)
}

// handleTeach stores an answer authored by the user.
func (s *Server) handleTeach(c echo.Context) error {
	var req TeachRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid teach request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, degraded, err := s.services.Knowledge().TeachOrDegrade(req.Replace, req.Answer, req.Variants)

	var dup *knowledge.DuplicateVariantError
	switch {
	case err == nil:
	case errors.Is(err, knowledge.ErrInvalidEntry):
		return echo.NewHTTPError(http.StatusBadRequest, "answer and at least one variant are required")
	case errors.As(err, &dup):
		return echo.NewHTTPError(http.StatusConflict,
			fmt.Sprintf("variant %q is already bound to a different answer", dup.Variant))
	default:
		s.logger.Error("teach failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var warning string
	if degraded {
		warning = memoryOnlyWarning
		s.logger.Warn("knowledge store degraded to memory-only", zap.String("entry_id", entry.ID))
		s.fireDegraded(c.Request().Context(), entry.ID)
	}

	return c.JSON(http.StatusCreated, TeachResponse{
		ID:       entry.ID,
		Answer:   entry.Answer,
		Variants: entry.Variants,
		Source:   entry.Source,
		Warning:  warning,
	})
}

const memoryOnlyWarning = "knowledge file could not be written; answer kept in memory only"

func (s *Server) fireDegraded(ctx context.Context, entryID string) {
	hm := s.services.Hooks()
	if hm == nil {
		return
	}
	if err := hm.Execute(ctx, hooks.HookStoreDegraded, map[string]any{"entry_id": entryID}); err != nil {
		s.logger.Warn("store_degraded hook failed", zap.Error(err))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
