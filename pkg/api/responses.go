package api

import (
	"time"

	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/queue"
)

// UploadNovelResponse acknowledges an accepted generation task.
type UploadNovelResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressResponse is the polling view of a task: registry state merged
// with the latest progress record.
type ProgressResponse struct {
	TaskID   string                 `json:"task_id"`
	Status   models.TaskStatus      `json:"status"`
	Stage    string                 `json:"stage,omitempty"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message"`
	Result   *models.PipelineResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse reports service liveness and worker pool state.
type HealthResponse struct {
	Status      string           `json:"status"`
	Version     string           `json:"version"`
	Pool        queue.PoolHealth `json:"pool"`
	ActiveTasks int              `json:"active_tasks"`
}
