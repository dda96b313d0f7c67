// Package models contains the domain types shared across pipeline stages,
// the task registry, and the HTTP API.
package models

import "time"

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

// Task status constants.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskRecord is the registry entry for a single generation task.
// Mutated only by the orchestrator; read by the API.
type TaskRecord struct {
	ID          string          `json:"task_id"`
	Status      TaskStatus      `json:"status"`
	Result      *PipelineResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ProgressType discriminates progress record payloads.
type ProgressType string

// Progress record types.
const (
	ProgressTypeProgress  ProgressType = "progress"
	ProgressTypeCompleted ProgressType = "completed"
	ProgressTypeError     ProgressType = "error"
)

// ProgressRecord is a single progress update for a task. Only the latest
// record per task is retained by the progress bus.
type ProgressRecord struct {
	TaskID   string         `json:"task_id"`
	Type     ProgressType   `json:"type"`
	Status   TaskStatus     `json:"status"`
	Stage    string         `json:"stage,omitempty"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Error    string         `json:"error,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Terminal reports whether this record ends the task's progress stream.
func (r *ProgressRecord) Terminal() bool {
	return r.Type == ProgressTypeCompleted || r.Type == ProgressTypeError
}

// PipelineResult is the terminal output of a completed pipeline run.
type PipelineResult struct {
	VideoPath     string  `json:"video_path"`
	VideoURL      string  `json:"video_url,omitempty"`
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"file_size"`
	TotalScenes   int     `json:"total_scenes"`
	TotalChapters int     `json:"total_chapters"`
	ScenesCount   int     `json:"scenes_count"`
}
