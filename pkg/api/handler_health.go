package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/IsPHao/storyreel/pkg/version"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	pool := s.pool.Health()

	status := "ok"
	code := http.StatusOK
	if !pool.IsHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, &HealthResponse{
		Status:      status,
		Version:     version.Version,
		Pool:        pool,
		ActiveTasks: s.registry.Count(),
	})
}
