// Package pipeline orchestrates the four generation stages for one task:
// parse, storyboard, render, compose. It owns all registry transitions and
// progress records for the task.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IsPHao/storyreel/pkg/composer"
	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/media"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/parser"
	"github.com/IsPHao/storyreel/pkg/progress"
	"github.com/IsPHao/storyreel/pkg/providers"
	"github.com/IsPHao/storyreel/pkg/renderer"
	"github.com/IsPHao/storyreel/pkg/storage"
	"github.com/IsPHao/storyreel/pkg/storyboard"
	"github.com/IsPHao/storyreel/pkg/tasks"
)

// Progress milestones per stage. The bus enforces monotonicity; these only
// need to be non-decreasing in pipeline order.
const (
	progressInit          = 1
	progressParsing       = 10
	progressParsed        = 20
	progressStoryboarding = 25
	progressStoryboarded  = 30
	progressRendering     = 40
	progressRendered      = 70
	progressComposing     = 80
	progressDone          = 100
)

// Stage component interfaces, satisfied by the concrete stage packages and
// replaceable in tests.
type novelParser interface {
	Parse(ctx context.Context, text string, mode models.ParseMode, opts models.ParseOptions) (*models.NovelParseResult, error)
}

type storyboardBuilder interface {
	Create(parsed *models.NovelParseResult) *models.StoryboardResult
}

type sceneRenderer interface {
	Render(ctx context.Context, sb *models.StoryboardResult) (*models.RenderResult, error)
}

type videoComposer interface {
	Compose(ctx context.Context, render *models.RenderResult) (*models.ComposeResult, error)
}

// Pipeline runs generation tasks. One Pipeline serves all tasks; the
// renderer and composer are constructed per task because they bind to the
// task workspace.
type Pipeline struct {
	cfg      *config.Config
	registry *tasks.Registry
	bus      *progress.Bus

	parser      novelParser
	storyboard  storyboardBuilder
	rendererFor func(store *storage.TaskStorage) sceneRenderer
	composerFor func(store *storage.TaskStorage) videoComposer
}

// New wires a pipeline from configuration and shared services.
func New(cfg *config.Config, registry *tasks.Registry, bus *progress.Bus) *Pipeline {
	llm := providers.NewLLMClient(cfg.Providers)
	images := providers.NewImageClient(cfg.Providers)
	tts := providers.NewTTSClient(cfg.Providers)
	runner := media.NewRunner(cfg.Composer.Timeout)

	return &Pipeline{
		cfg:        cfg,
		registry:   registry,
		bus:        bus,
		parser:     parser.New(llm, cfg.Parser),
		storyboard: storyboard.New(cfg.Storyboard),
		rendererFor: func(store *storage.TaskStorage) sceneRenderer {
			return renderer.New(cfg.Renderer, images, tts, store, runner)
		},
		composerFor: func(store *storage.TaskStorage) videoComposer {
			return composer.New(cfg.Composer, store, runner)
		},
	}
}

// Run executes the whole pipeline for a task. It always leaves the task in
// a terminal registry state and publishes a terminal progress record.
func (p *Pipeline) Run(ctx context.Context, taskID, text string, mode models.ParseMode, opts models.ParseOptions) {
	log := slog.With("task_id", taskID)
	if rec, ok := p.registry.Get(taskID); ok && rec.Status.IsTerminal() {
		log.Info("Task already terminal, skipping run", "status", rec.Status)
		return
	}
	log.Info("Pipeline started", "mode", mode, "text_length", len(text))

	p.publish(taskID, "init", progressInit, "Task accepted")
	p.registry.MarkRunning(taskID)

	result, err := p.run(ctx, taskID, text, mode, opts)
	switch {
	case err == nil:
		p.registry.MarkCompleted(taskID, result)
		p.bus.Publish(models.ProgressRecord{
			TaskID:   taskID,
			Type:     models.ProgressTypeCompleted,
			Status:   models.TaskStatusCompleted,
			Stage:    "completed",
			Progress: progressDone,
			Message:  "Video generation completed",
			Extra: map[string]any{
				"video_url":    result.VideoURL,
				"video_path":   result.VideoPath,
				"duration":     result.Duration,
				"file_size":    result.FileSize,
				"total_scenes": result.TotalScenes,
			},
		})
		log.Info("Pipeline completed", "video_path", result.VideoPath, "duration", result.Duration)

	case errors.Is(err, context.Canceled):
		p.registry.MarkCancelled(taskID)
		p.bus.Publish(models.ProgressRecord{
			TaskID:  taskID,
			Type:    models.ProgressTypeError,
			Status:  models.TaskStatusCancelled,
			Stage:   stageOf(err),
			Message: "Task cancelled",
			Error:   "task cancelled",
		})
		log.Info("Pipeline cancelled", "stage", stageOf(err))

	default:
		p.registry.MarkFailed(taskID, err)
		p.bus.Publish(models.ProgressRecord{
			TaskID:  taskID,
			Type:    models.ProgressTypeError,
			Status:  models.TaskStatusFailed,
			Stage:   stageOf(err),
			Message: "Video generation failed",
			Error:   err.Error(),
		})
		log.Error("Pipeline failed", "stage", stageOf(err), "error", err)
	}
}

// stageError tags a stage failure with the stage name for the terminal
// progress record.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

func (p *Pipeline) run(ctx context.Context, taskID, text string, mode models.ParseMode, opts models.ParseOptions) (*models.PipelineResult, error) {
	store, err := storage.NewTaskStorage(p.cfg.Storage.BasePath, taskID)
	if err != nil {
		return nil, &stageError{stage: "init", err: err}
	}

	// Parse.
	if err := ctx.Err(); err != nil {
		return nil, &stageError{stage: "parsing", err: err}
	}
	p.publish(taskID, "parsing", progressParsing, "Parsing novel text")
	parsed, err := p.parser.Parse(ctx, text, mode, opts)
	if err != nil {
		return nil, &stageError{stage: "parsing", err: err}
	}
	p.publish(taskID, "parsing", progressParsed, fmt.Sprintf("Parsed %d chapters, %d scenes", len(parsed.Chapters), parsed.TotalScenes()))

	// Storyboard.
	if err := ctx.Err(); err != nil {
		return nil, &stageError{stage: "storyboarding", err: err}
	}
	p.publish(taskID, "storyboarding", progressStoryboarding, "Creating storyboard")
	board := p.storyboard.Create(parsed)
	p.publish(taskID, "storyboarding", progressStoryboarded, fmt.Sprintf("Storyboard ready, estimated %.1fs", board.TotalDuration))

	// Render.
	if err := ctx.Err(); err != nil {
		return nil, &stageError{stage: "rendering", err: err}
	}
	p.publish(taskID, "rendering", progressRendering, "Rendering scene media")
	rendered, err := p.rendererFor(store).Render(ctx, board)
	if err != nil {
		return nil, &stageError{stage: "rendering", err: err}
	}
	p.publish(taskID, "rendering", progressRendered, fmt.Sprintf("Rendered %d scenes", rendered.TotalScenes))

	// Compose.
	if err := ctx.Err(); err != nil {
		return nil, &stageError{stage: "composing", err: err}
	}
	p.publish(taskID, "composing", progressComposing, "Composing final video")
	composed, err := p.composerFor(store).Compose(ctx, rendered)
	if err != nil {
		return nil, &stageError{stage: "composing", err: err}
	}

	if err := store.ClearTemp(); err != nil {
		slog.Warn("Temp cleanup failed", "task_id", taskID, "error", err)
	}

	return &models.PipelineResult{
		VideoPath:     composed.VideoPath,
		VideoURL:      p.videoURL(taskID),
		Duration:      composed.Duration,
		FileSize:      composed.FileSize,
		TotalScenes:   composed.TotalScenes,
		TotalChapters: composed.TotalChapters,
		ScenesCount:   composed.TotalScenes,
	}, nil
}

// videoURL builds the URL the final video is served under. Relative unless
// a backend base URL is configured.
func (p *Pipeline) videoURL(taskID string) string {
	rel := fmt.Sprintf("%s/%s/videos/final.mp4", strings.TrimSuffix(p.cfg.Server.MediaURLPrefix, "/"), taskID)
	if base := strings.TrimSuffix(p.cfg.Server.BackendBaseURL, "/"); base != "" {
		return base + rel
	}
	return rel
}

func (p *Pipeline) publish(taskID, stage string, value int, message string) {
	p.bus.Publish(models.ProgressRecord{
		TaskID:   taskID,
		Type:     models.ProgressTypeProgress,
		Status:   models.TaskStatusRunning,
		Stage:    stage,
		Progress: value,
		Message:  message,
	})
}
