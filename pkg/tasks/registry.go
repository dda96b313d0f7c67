// Package tasks tracks the lifecycle of generation tasks in process-local
// memory and evicts terminal tasks after a TTL.
package tasks

import (
	"sync"
	"time"

	"github.com/IsPHao/storyreel/pkg/models"
)

// Registry is the in-memory task table. Records are mutated only by the
// orchestrator; the API reads them. A Get that returns false does not
// distinguish "never existed" from "evicted"; callers treat both as 404.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*models.TaskRecord
	clock func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*models.TaskRecord),
		clock: time.Now,
	}
}

// Create registers a new pending task.
func (r *Registry) Create(taskID string) *models.TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := &models.TaskRecord{
		ID:        taskID,
		Status:    models.TaskStatusPending,
		CreatedAt: r.clock(),
	}
	r.tasks[taskID] = rec
	return rec
}

// MarkRunning transitions the task to running. A task already in a terminal
// state stays there (it may have been cancelled while still queued).
func (r *Registry) MarkRunning(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tasks[taskID]; ok && !rec.Status.IsTerminal() {
		rec.Status = models.TaskStatusRunning
	}
}

// MarkCompleted transitions the task to completed with its result.
func (r *Registry) MarkCompleted(taskID string, result *models.PipelineResult) {
	r.terminal(taskID, models.TaskStatusCompleted, func(rec *models.TaskRecord) {
		rec.Result = result
	})
}

// MarkFailed transitions the task to failed with the error message.
func (r *Registry) MarkFailed(taskID string, err error) {
	r.terminal(taskID, models.TaskStatusFailed, func(rec *models.TaskRecord) {
		rec.Error = err.Error()
	})
}

// MarkCancelled transitions the task to cancelled.
func (r *Registry) MarkCancelled(taskID string) {
	r.terminal(taskID, models.TaskStatusCancelled, nil)
}

func (r *Registry) terminal(taskID string, status models.TaskStatus, fill func(*models.TaskRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tasks[taskID]
	if !ok || rec.Status.IsTerminal() {
		return
	}
	rec.Status = status
	now := r.clock()
	rec.CompletedAt = &now
	if fill != nil {
		fill(rec)
	}
}

// Get returns a copy of the task record.
func (r *Registry) Get(taskID string) (models.TaskRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[taskID]
	if !ok {
		return models.TaskRecord{}, false
	}
	return *rec, true
}

// Count returns the number of tracked tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// evictExpired removes terminal tasks whose CompletedAt is older than ttl
// and returns their IDs.
func (r *Registry) evictExpired(ttl time.Duration) []string {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, rec := range r.tasks {
		if !rec.Status.IsTerminal() || rec.CompletedAt == nil {
			continue
		}
		if now.Sub(*rec.CompletedAt) > ttl {
			delete(r.tasks, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
