package api

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/queue"
)

// uploadNovelHandler handles POST /api/v1/novels/upload.
// Creates a pending task and returns immediately with its ID; the pipeline
// runs on the worker pool.
func (s *Server) uploadNovelHandler(c *echo.Context) error {
	var req UploadNovelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n := utf8.RuneCountInString(req.NovelText)
	if n < s.cfg.Parser.MinTextLength {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("novel_text too short: %d characters, minimum %d", n, s.cfg.Parser.MinTextLength))
	}
	if n > s.cfg.Parser.MaxTextLength {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("novel_text too long: %d characters, maximum %d", n, s.cfg.Parser.MaxTextLength))
	}

	mode := models.ParseMode(req.Mode)
	if mode == "" {
		mode = models.ParseModeEnhanced
	}
	if !mode.IsValid() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("invalid mode %q: must be 'simple' or 'enhanced'", req.Mode))
	}

	var opts models.ParseOptions
	if req.Options != nil {
		opts.MaxCharacters = req.Options.MaxCharacters
		opts.MaxScenes = req.Options.MaxScenes
	}

	// Terminal tasks past their TTL make room before a new one is admitted.
	if s.sweeper != nil {
		s.sweeper.Sweep()
	}

	taskID := uuid.New().String()
	rec := s.registry.Create(taskID)

	err := s.pool.Submit(queue.Task{
		ID:      taskID,
		Text:    req.NovelText,
		Mode:    mode,
		Options: opts,
	})
	if err != nil {
		s.registry.MarkFailed(taskID, err)
		return mapServiceError(err)
	}

	return c.JSON(http.StatusAccepted, &UploadNovelResponse{
		TaskID:    taskID,
		Status:    "processing",
		Message:   "Novel accepted, video generation started",
		CreatedAt: rec.CreatedAt,
	})
}

// progressHandler handles GET /api/v1/novels/:task_id/progress.
func (s *Server) progressHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	if taskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task id is required")
	}

	rec, ok := s.registry.Get(taskID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	resp := &ProgressResponse{
		TaskID: taskID,
		Status: rec.Status,
		Result: rec.Result,
		Error:  rec.Error,
	}
	if latest, ok := s.bus.Latest(taskID); ok {
		resp.Stage = latest.Stage
		resp.Progress = latest.Progress
		resp.Message = latest.Message
	} else if rec.Status == models.TaskStatusCompleted {
		resp.Progress = 100
	}
	return c.JSON(http.StatusOK, resp)
}

// cancelHandler handles POST /api/v1/novels/:task_id/cancel.
func (s *Server) cancelHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	if taskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task id is required")
	}

	rec, ok := s.registry.Get(taskID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if rec.Status.IsTerminal() {
		return echo.NewHTTPError(http.StatusConflict, "task is not in a cancellable state")
	}

	if !s.pool.Cancel(taskID) {
		// Still queued: mark terminal here so the worker skips it.
		s.registry.MarkCancelled(taskID)
		s.bus.Publish(models.ProgressRecord{
			TaskID:  taskID,
			Type:    models.ProgressTypeError,
			Status:  models.TaskStatusCancelled,
			Message: "Task cancelled",
			Error:   "task cancelled",
		})
	}

	return c.JSON(http.StatusAccepted, &CancelResponse{
		TaskID:  taskID,
		Status:  "cancelling",
		Message: "Cancellation requested",
	})
}
