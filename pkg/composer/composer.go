// Package composer assembles rendered scene media into the final video.
// Each scene becomes a still-image clip with its audio track; clips concat
// into chapter videos, chapter videos concat into the final cut.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/media"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/storage"
)

// Toolchain is the slice of the media runner the composer needs.
type Toolchain interface {
	RunFFmpeg(ctx context.Context, args ...string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
	CreateSilentAudio(ctx context.Context, path string, duration float64) error
}

var _ Toolchain = (*media.Runner)(nil)

// Composer assembles one task's final video.
type Composer struct {
	cfg   *config.ComposerConfig
	store *storage.TaskStorage
	media Toolchain
}

// New creates a composer bound to a task workspace.
func New(cfg *config.ComposerConfig, store *storage.TaskStorage, runner Toolchain) *Composer {
	return &Composer{cfg: cfg, store: store, media: runner}
}

// Compose builds the final video from the render result. The output always
// lands at the workspace's canonical final video path.
func (c *Composer) Compose(ctx context.Context, render *models.RenderResult) (*models.ComposeResult, error) {
	if err := c.validate(render); err != nil {
		return nil, err
	}

	slog.Info("Starting composition",
		"task_id", c.store.TaskID(),
		"chapters", len(render.Chapters),
		"scenes", render.TotalScenes)

	chapterVideos := make([]string, 0, len(render.Chapters))
	for _, chapter := range render.Chapters {
		path, err := c.composeChapter(ctx, chapter)
		if err != nil {
			return nil, err
		}
		chapterVideos = append(chapterVideos, path)
	}

	finalPath := c.store.FinalVideoPath()
	if err := c.concat(ctx, chapterVideos, finalPath); err != nil {
		return nil, &errdefs.CompositionError{Stage: "final concat", Err: err}
	}

	duration, err := c.media.ProbeDuration(ctx, finalPath)
	if err != nil {
		slog.Warn("Final video probe failed", "task_id", c.store.TaskID(), "error", err)
		duration = 0
	}
	var size int64
	if info, err := os.Stat(finalPath); err == nil {
		size = info.Size()
	}

	slog.Info("Composition complete",
		"task_id", c.store.TaskID(),
		"video_path", finalPath,
		"duration", duration,
		"file_size", size)
	return &models.ComposeResult{
		VideoPath:     finalPath,
		Duration:      duration,
		FileSize:      size,
		TotalScenes:   render.TotalScenes,
		TotalChapters: len(render.Chapters),
	}, nil
}

func (c *Composer) validate(render *models.RenderResult) error {
	if len(render.Chapters) == 0 {
		return errdefs.NewValidationError("chapters", "render result has no chapters")
	}
	for _, ch := range render.Chapters {
		if len(ch.Scenes) == 0 {
			return errdefs.NewValidationError("scenes",
				fmt.Sprintf("chapter %d has no scenes", ch.ChapterID))
		}
		for _, sc := range ch.Scenes {
			if sc.ImagePath == "" {
				return errdefs.NewValidationError("image_path",
					fmt.Sprintf("scene %d has no image path", sc.SceneID))
			}
			if sc.AudioPath == "" {
				return errdefs.NewValidationError("audio_path",
					fmt.Sprintf("scene %d has no audio path", sc.SceneID))
			}
		}
	}
	return nil
}

// composeChapter builds one chapter video from its scene clips. Scene clips
// are intermediate and removed once the chapter video exists.
func (c *Composer) composeChapter(ctx context.Context, chapter models.RenderedChapter) (string, error) {
	clips := make([]string, 0, len(chapter.Scenes))
	for _, scene := range chapter.Scenes {
		clip, err := c.composeScene(ctx, chapter.ChapterID, scene)
		if err != nil {
			return "", err
		}
		clips = append(clips, clip)
	}

	out := c.store.Path(storage.KindTemp, fmt.Sprintf("chapter_%d_%s.mp4", chapter.ChapterID, shortID()))
	if err := c.concat(ctx, clips, out); err != nil {
		return "", &errdefs.CompositionError{Stage: "chapter concat", Chapter: chapter.ChapterID, Err: err}
	}

	for _, clip := range clips {
		if err := os.Remove(clip); err != nil {
			slog.Warn("Failed to remove scene clip", "task_id", c.store.TaskID(), "path", clip, "error", err)
		}
	}

	slog.Info("Chapter composed", "task_id", c.store.TaskID(), "chapter_id", chapter.ChapterID, "scenes", len(chapter.Scenes))
	return out, nil
}

// composeScene renders one still-image clip. Remote media references are
// fetched first. A missing image is fatal; a missing audio file is replaced
// with silence of the scene's duration.
func (c *Composer) composeScene(ctx context.Context, chapterID int, scene models.RenderedScene) (string, error) {
	imagePath, err := c.resolveMedia(ctx, scene.ImagePath, ".png")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(imagePath); err != nil {
		return "", errdefs.NewValidationError("image_path",
			fmt.Sprintf("image file not found for scene %d: %s", scene.SceneID, scene.ImagePath))
	}

	duration := scene.Duration
	if scene.AudioDuration > duration {
		duration = scene.AudioDuration
	}

	audioPath, err := c.resolveMedia(ctx, scene.AudioPath, ".mp3")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(audioPath); err != nil {
		slog.Warn("Audio file missing, substituting silence",
			"task_id", c.store.TaskID(), "scene_id", scene.SceneID, "path", audioPath)
		audioPath = c.store.Path(storage.KindTemp, fmt.Sprintf("silent_%s.mp3", shortID()))
		if err := c.media.CreateSilentAudio(ctx, audioPath, duration); err != nil {
			return "", &errdefs.CompositionError{Stage: "silent audio", Scene: scene.SceneID, Chapter: chapterID, Err: err}
		}
	}

	out := c.store.Path(storage.KindTemp, fmt.Sprintf("scene_%d_%s.mp4", scene.SceneID, shortID()))
	if err := c.media.RunFFmpeg(ctx, sceneClipArgs(c.cfg, imagePath, audioPath, out, duration)...); err != nil {
		return "", &errdefs.CompositionError{Stage: "scene clip", Scene: scene.SceneID, Chapter: chapterID, Err: err}
	}
	return out, nil
}

// sceneClipArgs builds the ffmpeg arguments for a still-image clip: the
// image loops for the clip duration while the audio plays underneath.
func sceneClipArgs(cfg *config.ComposerConfig, imagePath, audioPath, outPath string, duration float64) []string {
	return []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", cfg.Codec,
		"-preset", cfg.Preset,
		"-tune", "stillimage",
		"-c:a", cfg.AudioCodec,
		"-b:a", cfg.AudioBitrate,
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-t", fmt.Sprintf("%g", duration),
		outPath,
	}
}

// concat joins clips losslessly via the ffmpeg concat demuxer. The list
// file uses absolute paths so the working directory does not matter.
func (c *Composer) concat(ctx context.Context, paths []string, outPath string) error {
	listPath := c.store.Path(storage.KindTemp, fmt.Sprintf("concat_%s.txt", shortID()))
	var list []byte
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		list = append(list, fmt.Sprintf("file '%s'\n", abs)...)
	}
	if err := os.WriteFile(listPath, list, 0o644); err != nil {
		return &errdefs.StorageError{Op: "write", Path: listPath, Err: err}
	}
	defer os.Remove(listPath)

	return c.media.RunFFmpeg(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath)
}

func shortID() string {
	return uuid.New().String()[:8]
}
