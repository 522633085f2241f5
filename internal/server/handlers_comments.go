package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spacesedan/commentflow/internal/models"
)

func (s *Server) handleComments(c echo.Context) error {
	var req models.CommentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	resp, err := s.service.Collect(c.Request().Context(), req.URL)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write comments response: %w", err)
	}
	return nil
}
