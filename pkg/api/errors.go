package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/queue"
)

// mapServiceError maps pipeline and queue errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *errdefs.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validErr.Error())
	}
	if errors.Is(err, queue.ErrQueueFull) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "task queue is full, retry later")
	}
	if errors.Is(err, queue.ErrStopped) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
