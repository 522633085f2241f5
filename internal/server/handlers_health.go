package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDisabled = "disabled"
)

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// handleReadiness always answers 200: a degraded classifier only turns
// sentiment into ERROR labels, the endpoint still serves comments.
func (s *Server) handleReadiness(c echo.Context) error {
	response := map[string]string{
		"status":     "ready",
		"classifier": s.classifierStatus(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write readiness response: %w", err)
	}
	return nil
}

func (s *Server) classifierStatus() string {
	switch {
	case !s.service.SentimentEnabled():
		return statusDisabled
	case s.classifierHealthy == nil || s.classifierHealthy.Load():
		return statusHealthy
	default:
		return statusDegraded
	}
}
