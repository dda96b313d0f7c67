// Package api exposes the generation service over HTTP: task intake,
// progress polling, a per-task WebSocket stream, cancellation, health, and
// static serving of finished media.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/progress"
	"github.com/IsPHao/storyreel/pkg/queue"
	"github.com/IsPHao/storyreel/pkg/tasks"
)

// wsWriteTimeout bounds a single WebSocket send.
const wsWriteTimeout = 10 * time.Second

// Sweeper runs one eviction pass. Satisfied by tasks.Sweeper.
type Sweeper interface {
	Sweep()
}

// Server is the HTTP API server.
type Server struct {
	cfg         *config.Config
	registry    *tasks.Registry
	bus         *progress.Bus
	pool        *queue.WorkerPool
	connManager *ConnectionManager
	sweeper     Sweeper

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg *config.Config, registry *tasks.Registry, bus *progress.Bus, pool *queue.WorkerPool) *Server {
	s := &Server{
		cfg:         cfg,
		registry:    registry,
		bus:         bus,
		pool:        pool,
		connManager: NewConnectionManager(bus, wsWriteTimeout),
	}

	e := echo.New()
	e.Use(securityHeaders())

	v1 := e.Group("/api/v1")
	v1.POST("/novels/upload", s.uploadNovelHandler)
	v1.GET("/novels/:task_id/progress", s.progressHandler)
	v1.GET("/novels/:task_id/ws", s.wsHandler)
	v1.POST("/novels/:task_id/cancel", s.cancelHandler)

	e.GET("/health", s.healthHandler)
	e.Static(cfg.Server.MediaURLPrefix, cfg.Storage.BasePath)

	s.echo = e
	return s
}

// SetSweeper attaches the registry sweeper for opportunistic eviction on
// task submission.
func (s *Server) SetSweeper(sw Sweeper) {
	s.sweeper = sw
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
