package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/IsPHao/storyreel/pkg/progress"
)

// ConnectionManager owns all WebSocket progress streams. Each connection
// watches exactly one task.
type ConnectionManager struct {
	bus          *progress.Bus
	writeTimeout time.Duration

	mu          sync.RWMutex
	connections map[string]*Connection
}

// Connection is a single WebSocket client watching one task.
type Connection struct {
	ID     string
	TaskID string
	Conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnectionManager creates a connection manager over the progress bus.
func NewConnectionManager(bus *progress.Bus, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		bus:          bus,
		writeTimeout: writeTimeout,
		connections:  make(map[string]*Connection),
	}
}

// HandleConnection streams the task's progress records to the client.
// Blocks until the stream is terminal or the client disconnects. The first
// record sent is the task's current latest state, when one exists.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn, taskID string) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	c := &Connection{
		ID:     uuid.New().String(),
		TaskID: taskID,
		Conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
	m.register(c)
	defer m.unregister(c)

	sub := m.bus.Subscribe(taskID)
	defer m.bus.Unsubscribe(sub)

	// Drain client frames; their content is ignored, but a read error is
	// how we learn the client went away.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	slog.Info("WebSocket stream opened", "connection_id", c.ID, "task_id", taskID)
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-sub.C():
			if !ok {
				// Terminal record delivered; close normally.
				conn.Close(websocket.StatusNormalClosure, "task finished")
				return
			}
			if err := m.sendJSON(c, rec); err != nil {
				slog.Warn("Failed to send to WebSocket client",
					"connection_id", c.ID, "task_id", taskID, "error", err)
				return
			}
		}
	}
}

// ActiveConnections returns the count of open streams.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *ConnectionManager) sendJSON(c *Connection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	return c.Conn.Write(writeCtx, websocket.MessageText, data)
}

func (m *ConnectionManager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

func (m *ConnectionManager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, c.ID)
}
