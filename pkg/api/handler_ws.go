package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler upgrades GET /api/v1/novels/:task_id/ws to a WebSocket and
// delegates to the ConnectionManager.
func (s *Server) wsHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	if taskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task id is required")
	}
	if _, ok := s.registry.Get(taskID); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	opts := &websocket.AcceptOptions{}
	if len(s.cfg.Server.AllowedWSOrigins) > 0 {
		opts.OriginPatterns = s.cfg.Server.AllowedWSOrigins
	} else {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), opts)
	if err != nil {
		return err
	}

	// HandleConnection blocks until the stream ends.
	s.connManager.HandleConnection(c.Request().Context(), conn, taskID)
	return nil
}
