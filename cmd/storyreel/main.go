// storyreel server turns uploaded novels into narrated videos through a
// staged generation pipeline, exposed over an HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/IsPHao/storyreel/pkg/api"
	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/pipeline"
	"github.com/IsPHao/storyreel/pkg/progress"
	"github.com/IsPHao/storyreel/pkg/queue"
	"github.com/IsPHao/storyreel/pkg/storage"
	"github.com/IsPHao/storyreel/pkg/tasks"
	"github.com/IsPHao/storyreel/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupLogging() {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var lv slog.Level
		if err := lv.UnmarshalText([]byte(v)); err == nil {
			level = lv
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	configPath := flag.String("config",
		getEnv("CONFIG_PATH", "./config.yaml"),
		"Path to the YAML configuration file")
	flag.Parse()

	setupLogging()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, continuing with existing environment", "error", err)
	}

	slog.Info("Starting storyreel",
		"version", version.Version,
		"config_path", *configPath)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(*configPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.BasePath, 0o755); err != nil {
		slog.Error("Failed to create media root", "path", cfg.Storage.BasePath, "error", err)
		os.Exit(1)
	}

	// 2. Core services: task registry, progress bus, pipeline
	registry := tasks.NewRegistry()
	bus := progress.NewBus()
	pipe := pipeline.New(cfg, registry, bus)

	// 3. Worker pool (started before the HTTP server)
	pool := queue.NewWorkerPool(cfg.Queue, pipe)
	pool.Start(ctx)

	// 4. Retention sweeper: evicted tasks lose their workspace and any
	// cached progress state.
	sweeper := tasks.NewSweeper(cfg.Retention, registry,
		func(taskID string) {
			if err := storage.RemoveWorkspace(cfg.Storage.BasePath, taskID); err != nil {
				slog.Warn("Failed to remove evicted task workspace", "task_id", taskID, "error", err)
			}
		},
		bus.Drop,
	)
	sweeper.Start(ctx)

	// 5. HTTP server
	httpServer := api.NewServer(cfg, registry, bus, pool)
	httpServer.SetSweeper(sweeper)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("storyreel started successfully",
		"workers", cfg.Queue.MaxConcurrentTasks,
		"media_root", cfg.Storage.BasePath)

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 7. Graceful shutdown: drain workers within the configured budget,
	// then stop the HTTP server.
	workerShutdownCtx, workerCancel := context.WithTimeout(ctx, cfg.Queue.GracefulShutdownTimeout)
	defer workerCancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-workerShutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, abandoning in-flight tasks")
	}

	sweeper.Stop()

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
