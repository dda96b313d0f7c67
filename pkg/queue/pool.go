// Package queue runs generation tasks on a bounded worker pool and keeps
// the cancel registry for in-flight tasks.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/models"
)

// submitBuffer is the pending task capacity beyond the running workers.
const submitBuffer = 100

// ErrQueueFull is returned by Submit when the pending buffer is exhausted.
var ErrQueueFull = errors.New("task queue is full")

// ErrStopped is returned by Submit after the pool has been stopped.
var ErrStopped = errors.New("worker pool is stopped")

// Task is one queued generation request.
type Task struct {
	ID      string
	Text    string
	Mode    models.ParseMode
	Options models.ParseOptions
}

// Executor runs a task end to end. Satisfied by pipeline.Pipeline.
type Executor interface {
	Run(ctx context.Context, taskID, text string, mode models.ParseMode, opts models.ParseOptions)
}

// PoolHealth is a snapshot of the pool for the health endpoint.
type PoolHealth struct {
	Workers     int  `json:"workers"`
	ActiveTasks int  `json:"active_tasks"`
	QueueDepth  int  `json:"queue_depth"`
	IsHealthy   bool `json:"is_healthy"`
}

// WorkerPool executes tasks with bounded concurrency.
type WorkerPool struct {
	cfg      *config.QueueConfig
	executor Executor

	tasks    chan Task
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Cancel registry: task_id → cancel function of the running task.
	activeTasks map[string]context.CancelFunc
	mu          sync.RWMutex
	started     bool
	stopped     bool
}

// NewWorkerPool creates a pool; call Start before submitting.
func NewWorkerPool(cfg *config.QueueConfig, executor Executor) *WorkerPool {
	return &WorkerPool{
		cfg:         cfg,
		executor:    executor,
		tasks:       make(chan Task, submitBuffer),
		stopCh:      make(chan struct{}),
		activeTasks: make(map[string]context.CancelFunc),
	}
}

// Start spawns the worker goroutines. Safe to call once; subsequent calls
// are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true
	p.mu.Unlock()

	slog.Info("Starting worker pool", "worker_count", p.cfg.MaxConcurrentTasks)
	for i := 0; i < p.cfg.MaxConcurrentTasks; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.runWorker(ctx, workerID)
		}(i)
	}
}

func (p *WorkerPool) runWorker(ctx context.Context, workerID int) {
	slog.Info("Worker started", "worker_id", workerID)
	for {
		select {
		case <-p.stopCh:
			slog.Info("Worker stopped", "worker_id", workerID)
			return
		case <-ctx.Done():
			slog.Info("Worker context cancelled", "worker_id", workerID)
			return
		case task := <-p.tasks:
			p.runTask(ctx, task)
		}
	}
}

func (p *WorkerPool) runTask(ctx context.Context, task Task) {
	var taskCtx context.Context
	var cancel context.CancelFunc
	if p.cfg.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	p.register(task.ID, cancel)
	defer p.unregister(task.ID)

	p.executor.Run(taskCtx, task.ID, task.Text, task.Mode, task.Options)
}

// Submit enqueues a task. It never blocks; a full queue is reported to the
// caller instead of stalling the HTTP handler.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped {
		return ErrStopped
	}

	select {
	case p.tasks <- task:
		slog.Info("Task queued", "task_id", task.ID, "queue_depth", len(p.tasks))
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel triggers context cancellation for a running task. Returns false
// when the task is not currently executing.
func (p *WorkerPool) Cancel(taskID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeTasks[taskID]; ok {
		cancel()
		slog.Info("Task cancellation requested", "task_id", taskID)
		return true
	}
	return false
}

// Stop signals workers to stop and waits for in-flight tasks up to the
// graceful shutdown timeout. Queued but unstarted tasks are dropped.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	active := p.activeTaskIDs()
	if len(active) > 0 {
		slog.Info("Waiting for active tasks to complete", "count", len(active), "task_ids", active)
	}
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-time.After(p.cfg.GracefulShutdownTimeout):
		slog.Warn("Worker pool shutdown timed out, abandoning active tasks",
			"timeout", p.cfg.GracefulShutdownTimeout)
	}
}

// Health returns a snapshot for the health endpoint.
func (p *WorkerPool) Health() PoolHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PoolHealth{
		Workers:     p.cfg.MaxConcurrentTasks,
		ActiveTasks: len(p.activeTasks),
		QueueDepth:  len(p.tasks),
		IsHealthy:   p.started && !p.stopped,
	}
}

func (p *WorkerPool) register(taskID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeTasks[taskID] = cancel
}

func (p *WorkerPool) unregister(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeTasks, taskID)
}

func (p *WorkerPool) activeTaskIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeTasks))
	for id := range p.activeTasks {
		ids = append(ids, id)
	}
	return ids
}
