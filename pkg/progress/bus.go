// Package progress implements the in-process progress bus: a per-task
// latest-state cache with fan-out to pull (polling) and push (WebSocket)
// consumers.
package progress

import (
	"log/slog"
	"sync"

	"github.com/IsPHao/storyreel/pkg/models"
)

// subscriberBuffer is the per-subscription pending record capacity. A slow
// subscriber that overruns it loses the oldest record; publishing never
// blocks the producer.
const subscriberBuffer = 16

// Subscription is one consumer's view of a task's progress stream. Records
// arrive on C; the channel is closed after the terminal record has been
// delivered, or on Unsubscribe.
type Subscription struct {
	taskID string
	ch     chan models.ProgressRecord
	once   sync.Once
}

// C returns the receive channel of the subscription.
func (s *Subscription) C() <-chan models.ProgressRecord { return s.ch }

// TaskID returns the task the subscription watches.
func (s *Subscription) TaskID() string { return s.taskID }

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// taskState holds the per-task latest record and subscriber set.
// All mutations are serialized by mu.
type taskState struct {
	mu       sync.Mutex
	latest   *models.ProgressRecord
	subs     map[*Subscription]struct{}
	terminal bool
}

// Bus is the process-local progress bus. Safe for use from any producer.
type Bus struct {
	mu    sync.RWMutex
	tasks map[string]*taskState
}

// NewBus creates an empty progress bus.
func NewBus() *Bus {
	return &Bus{tasks: make(map[string]*taskState)}
}

func (b *Bus) state(taskID string, create bool) *taskState {
	b.mu.RLock()
	st, ok := b.tasks[taskID]
	b.mu.RUnlock()
	if ok || !create {
		return st
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok = b.tasks[taskID]; ok {
		return st
	}
	st = &taskState{subs: make(map[*Subscription]struct{})}
	b.tasks[taskID] = st
	return st
}

// Publish stores rec as the task's latest state and fans it out to all
// subscribers. Progress is monotonically non-decreasing per task: a record
// carrying a lower value than the current latest is raised to it before
// being stored or delivered. Records published after a terminal record are
// dropped.
func (b *Bus) Publish(rec models.ProgressRecord) {
	st := b.state(rec.TaskID, true)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.terminal {
		slog.Warn("Progress record after terminal state dropped",
			"task_id", rec.TaskID, "stage", rec.Stage)
		return
	}

	if st.latest != nil && rec.Progress < st.latest.Progress {
		rec.Progress = st.latest.Progress
	}
	cp := rec
	st.latest = &cp

	for sub := range st.subs {
		deliver(sub, rec)
	}

	if rec.Terminal() {
		st.terminal = true
		for sub := range st.subs {
			sub.close()
			delete(st.subs, sub)
		}
	}
}

// deliver pushes rec without blocking; on a full buffer the oldest pending
// record is discarded first.
func deliver(sub *Subscription, rec models.ProgressRecord) {
	select {
	case sub.ch <- rec:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- rec:
	default:
	}
}

// Latest returns the most recently published record for the task.
func (b *Bus) Latest(taskID string) (models.ProgressRecord, bool) {
	st := b.state(taskID, false)
	if st == nil {
		return models.ProgressRecord{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.latest == nil {
		return models.ProgressRecord{}, false
	}
	return *st.latest, true
}

// Subscribe registers a new consumer for the task's progress stream. If a
// latest record exists it is delivered immediately (initial state); if the
// task is already terminal the subscription is closed right after that
// delivery.
func (b *Bus) Subscribe(taskID string) *Subscription {
	st := b.state(taskID, true)
	sub := &Subscription{
		taskID: taskID,
		ch:     make(chan models.ProgressRecord, subscriberBuffer),
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.latest != nil {
		deliver(sub, *st.latest)
	}
	if st.terminal {
		sub.close()
		return sub
	}
	st.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	if st := b.state(sub.taskID, false); st != nil {
		st.mu.Lock()
		delete(st.subs, sub)
		st.mu.Unlock()
	}
	sub.close()
}

// Drop forgets all state for a task. Called by the registry sweeper when
// the task is evicted.
func (b *Bus) Drop(taskID string) {
	b.mu.Lock()
	st, ok := b.tasks[taskID]
	delete(b.tasks, taskID)
	b.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for sub := range st.subs {
		sub.close()
		delete(st.subs, sub)
	}
}
