package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/IsPHao/storyreel/pkg/config"
)

// Evictor is notified when a task is dropped from the registry so that
// associated state (workspace files, progress cache) can be released.
type Evictor func(taskID string)

// Sweeper periodically evicts terminal tasks past their TTL.
// All operations are idempotent.
type Sweeper struct {
	config   *config.RetentionConfig
	registry *Registry
	evictors []Evictor

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper over the given registry. Evictors run for
// every evicted task ID, in order.
func NewSweeper(cfg *config.RetentionConfig, registry *Registry, evictors ...Evictor) *Sweeper {
	return &Sweeper{
		config:   cfg,
		registry: registry,
		evictors: evictors,
	}
}

// Start launches the background eviction loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Task sweeper started",
		"task_ttl", s.config.TaskTTL,
		"interval", s.config.SweepInterval)
}

// Stop signals the eviction loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Task sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts expired tasks once. Exposed so a new submission can trigger
// an opportunistic pass without waiting for the ticker.
func (s *Sweeper) Sweep() {
	evicted := s.registry.evictExpired(s.config.TaskTTL)
	for _, id := range evicted {
		for _, ev := range s.evictors {
			ev(id)
		}
	}
	if len(evicted) > 0 {
		slog.Info("Retention: evicted terminal tasks", "count", len(evicted))
	}
}
