package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/models"
)

type commentService interface {
	Collect(ctx context.Context, videoURL string) (models.CommentsResponse, error)
	SentimentEnabled() bool
}

type Server struct {
	echo *echo.Echo
	port string

	service  commentService
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	// classifierHealthy is updated by the monitoring loop; nil means the
	// classifier is not monitored and is assumed healthy.
	classifierHealthy *atomic.Bool
	startTime         time.Time
}

func NewServer(port string, service commentService, registry *prometheus.Registry, m *metrics.Metrics, classifierHealthy *atomic.Bool) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:              e,
		port:              port,
		service:           service,
		metrics:           m,
		registry:          registry,
		classifierHealthy: classifierHealthy,
		startTime:         time.Now(),
	}
	e.HTTPErrorHandler = srv.handleError

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("[Server] Starting server", slog.String("port", s.port))
	if err := s.echo.Start(":" + s.port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// handleError renders every error as {"detail": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		detail = fmt.Sprint(httpErr.Message)
	}

	if status >= http.StatusInternalServerError {
		slog.Error("[Server] Request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	if err := c.JSON(status, models.ErrorResponse{Detail: detail}); err != nil {
		slog.Error("[Server] Failed to write error response",
			slog.String("error", err.Error()))
	}
}
