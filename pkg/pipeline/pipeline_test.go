package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/progress"
	"github.com/IsPHao/storyreel/pkg/storage"
	"github.com/IsPHao/storyreel/pkg/tasks"
)

type fakeParser struct {
	err error
}

func (f *fakeParser) Parse(context.Context, string, models.ParseMode, models.ParseOptions) (*models.NovelParseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.NovelParseResult{
		Characters: []models.CharacterInfo{{Name: "Alice"}},
		Chapters: []models.Chapter{{ChapterID: 1, Scenes: []models.Scene{
			{SceneID: 1, ContentType: models.ContentTypeNarration, Narration: "text"},
		}}},
	}, nil
}

type fakeBoard struct{}

func (fakeBoard) Create(*models.NovelParseResult) *models.StoryboardResult {
	return &models.StoryboardResult{
		Chapters:    []models.StoryboardChapter{{ChapterID: 1, Scenes: []models.StoryboardScene{{SceneID: 1}}}},
		TotalScenes: 1,
	}
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, _ *models.StoryboardResult) (*models.RenderResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.RenderResult{
		Chapters:    []models.RenderedChapter{{ChapterID: 1, Scenes: []models.RenderedScene{{SceneID: 1}}}},
		TotalScenes: 1,
	}, nil
}

type fakeComposer struct {
	err error
}

func (f *fakeComposer) Compose(context.Context, *models.RenderResult) (*models.ComposeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ComposeResult{
		VideoPath:     "/videos/final.mp4",
		Duration:      12.5,
		FileSize:      1024,
		TotalScenes:   1,
		TotalChapters: 1,
	}, nil
}

type testPipeline struct {
	p        *Pipeline
	registry *tasks.Registry
	bus      *progress.Bus
}

func newTestPipeline(t *testing.T, parse *fakeParser, render *fakeRenderer, compose *fakeComposer) *testPipeline {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BasePath = t.TempDir()

	registry := tasks.NewRegistry()
	bus := progress.NewBus()
	p := &Pipeline{
		cfg:        cfg,
		registry:   registry,
		bus:        bus,
		parser:     parse,
		storyboard: fakeBoard{},
		rendererFor: func(*storage.TaskStorage) sceneRenderer {
			return render
		},
		composerFor: func(*storage.TaskStorage) videoComposer {
			return compose
		},
	}
	return &testPipeline{p: p, registry: registry, bus: bus}
}

func collect(sub *progress.Subscription) []models.ProgressRecord {
	var out []models.ProgressRecord
	for rec := range sub.C() {
		out = append(out, rec)
	}
	return out
}

func TestRunCompletesTask(t *testing.T) {
	tp := newTestPipeline(t, &fakeParser{}, &fakeRenderer{}, &fakeComposer{})
	tp.registry.Create("t1")
	sub := tp.bus.Subscribe("t1")

	tp.p.Run(context.Background(), "t1", "some text", models.ParseModeSimple, models.ParseOptions{})

	rec, ok := tp.registry.Get("t1")
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "/videos/final.mp4", rec.Result.VideoPath)
	assert.Equal(t, "/media/t1/videos/final.mp4", rec.Result.VideoURL)
	assert.Equal(t, 12.5, rec.Result.Duration)

	records := collect(sub)
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, models.ProgressTypeCompleted, last.Type)
	assert.Equal(t, 100, last.Progress)

	// Monotonic progress throughout.
	prev := -1
	for _, r := range records {
		assert.GreaterOrEqual(t, r.Progress, prev)
		prev = r.Progress
	}
}

func TestRunBackendBaseURLPrefixesVideoURL(t *testing.T) {
	tp := newTestPipeline(t, &fakeParser{}, &fakeRenderer{}, &fakeComposer{})
	tp.p.cfg.Server.BackendBaseURL = "https://api.example.com/"
	tp.registry.Create("t1")

	tp.p.Run(context.Background(), "t1", "text", models.ParseModeSimple, models.ParseOptions{})

	rec, _ := tp.registry.Get("t1")
	require.NotNil(t, rec.Result)
	assert.Equal(t, "https://api.example.com/media/t1/videos/final.mp4", rec.Result.VideoURL)
}

func TestRunStageFailureMarksFailed(t *testing.T) {
	tests := []struct {
		name   string
		parse  *fakeParser
		render *fakeRenderer
		comp   *fakeComposer
		stage  string
	}{
		{"parse failure", &fakeParser{err: errors.New("bad input")}, &fakeRenderer{}, &fakeComposer{}, "parsing"},
		{"render failure", &fakeParser{}, &fakeRenderer{err: errors.New("image api down")}, &fakeComposer{}, "rendering"},
		{"compose failure", &fakeParser{}, &fakeRenderer{}, &fakeComposer{err: errors.New("ffmpeg exit 1")}, "composing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPipeline(t, tt.parse, tt.render, tt.comp)
			tp.registry.Create("t1")
			sub := tp.bus.Subscribe("t1")

			tp.p.Run(context.Background(), "t1", "text", models.ParseModeSimple, models.ParseOptions{})

			rec, _ := tp.registry.Get("t1")
			assert.Equal(t, models.TaskStatusFailed, rec.Status)
			assert.NotEmpty(t, rec.Error)

			records := collect(sub)
			last := records[len(records)-1]
			assert.Equal(t, models.ProgressTypeError, last.Type)
			assert.Equal(t, models.TaskStatusFailed, last.Status)
			assert.Equal(t, tt.stage, last.Stage)
		})
	}
}

func TestRunCancellation(t *testing.T) {
	tp := newTestPipeline(t, &fakeParser{}, &fakeRenderer{}, &fakeComposer{})
	tp.registry.Create("t1")
	sub := tp.bus.Subscribe("t1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tp.p.Run(ctx, "t1", "text", models.ParseModeSimple, models.ParseOptions{})

	rec, _ := tp.registry.Get("t1")
	assert.Equal(t, models.TaskStatusCancelled, rec.Status)

	records := collect(sub)
	last := records[len(records)-1]
	assert.Equal(t, models.ProgressTypeError, last.Type)
	assert.Equal(t, models.TaskStatusCancelled, last.Status)
}

func TestStageErrorUnwraps(t *testing.T) {
	inner := errors.New("inner")
	err := &stageError{stage: "rendering", err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "rendering", stageOf(err))
	assert.Equal(t, "", stageOf(inner))
}
