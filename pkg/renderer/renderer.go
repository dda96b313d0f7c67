// Package renderer turns storyboard scenes into media files on disk: one
// generated image and one synthesized audio track per scene.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/media"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/providers"
	"github.com/IsPHao/storyreel/pkg/storage"
)

// fallbackAudioDuration is assumed when ffprobe cannot read the generated
// track.
const fallbackAudioDuration = 3.0

// Toolchain is the slice of the media runner the renderer needs.
type Toolchain interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	CreateSilentAudio(ctx context.Context, path string, duration float64) error
}

var _ Toolchain = (*media.Runner)(nil)

// Renderer renders one task's storyboard. It is single-use: the voice cache
// is scoped to the task so a speaker keeps one voice across all scenes.
type Renderer struct {
	cfg    *config.RendererConfig
	images providers.ImageGenerator
	tts    providers.SpeechSynthesizer
	store  *storage.TaskStorage
	media  Toolchain

	// backoffUnit scales the retry backoff; shrunk in tests.
	backoffUnit time.Duration

	voiceCache map[string]string
}

// New creates a renderer bound to a task workspace.
func New(cfg *config.RendererConfig, images providers.ImageGenerator, tts providers.SpeechSynthesizer, store *storage.TaskStorage, runner Toolchain) *Renderer {
	return &Renderer{
		cfg:         cfg,
		images:      images,
		tts:         tts,
		store:       store,
		media:       runner,
		backoffUnit: time.Second,
		voiceCache:  make(map[string]string),
	}
}

// Render produces media for every scene of the storyboard. Scenes render
// sequentially; within a scene the image and audio calls run concurrently.
func (r *Renderer) Render(ctx context.Context, storyboard *models.StoryboardResult) (*models.RenderResult, error) {
	if err := r.validate(storyboard); err != nil {
		return nil, err
	}
	r.prepareCharacterVoices(storyboard)

	slog.Info("Starting render",
		"task_id", r.store.TaskID(),
		"chapters", len(storyboard.Chapters),
		"scenes", storyboard.TotalScenes)

	result := &models.RenderResult{OutputDirectory: r.store.Root()}
	for _, chapter := range storyboard.Chapters {
		rendered, err := r.renderChapter(ctx, chapter)
		if err != nil {
			return nil, err
		}
		result.Chapters = append(result.Chapters, *rendered)
		result.TotalDuration += rendered.TotalDuration
		result.TotalScenes += len(rendered.Scenes)
	}

	slog.Info("Render complete",
		"task_id", r.store.TaskID(),
		"scenes", result.TotalScenes,
		"duration", result.TotalDuration)
	return result, nil
}

func (r *Renderer) validate(storyboard *models.StoryboardResult) error {
	if len(storyboard.Chapters) == 0 {
		return errdefs.NewValidationError("chapters", "storyboard has no chapters")
	}
	for _, ch := range storyboard.Chapters {
		for _, sc := range ch.Scenes {
			if strings.TrimSpace(sc.Image.Prompt) == "" && strings.TrimSpace(sc.Description) == "" {
				return errdefs.NewValidationError("image_prompt",
					fmt.Sprintf("scene %d has no image prompt or description", sc.SceneID))
			}
		}
	}
	return nil
}

func (r *Renderer) renderChapter(ctx context.Context, chapter models.StoryboardChapter) (*models.RenderedChapter, error) {
	rendered := &models.RenderedChapter{ChapterID: chapter.ChapterID, Title: chapter.Title}
	for _, scene := range chapter.Scenes {
		rs, err := r.renderScene(ctx, scene)
		if err != nil {
			return nil, err
		}
		rendered.Scenes = append(rendered.Scenes, *rs)
		rendered.TotalDuration += rs.Duration
	}
	return rendered, nil
}

func (r *Renderer) renderScene(ctx context.Context, scene models.StoryboardScene) (*models.RenderedScene, error) {
	var imagePath, audioPath string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := r.generateImage(gctx, scene)
		imagePath = p
		return err
	})
	g.Go(func() error {
		p, err := r.generateAudio(gctx, scene)
		audioPath = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	audioDuration, err := r.media.ProbeDuration(ctx, audioPath)
	if err != nil {
		slog.Warn("Audio probe failed, assuming fallback duration",
			"task_id", r.store.TaskID(), "scene_id", scene.SceneID, "error", err)
		audioDuration = fallbackAudioDuration
	}

	// The still image must stay on screen until the speech finishes.
	duration := scene.Duration
	if audioDuration > duration {
		duration = audioDuration
	}

	speakers := make([]string, 0, len(scene.Characters))
	for _, c := range scene.Characters {
		speakers = append(speakers, c.Name)
	}
	return &models.RenderedScene{
		SceneID:       scene.SceneID,
		ChapterID:     scene.ChapterID,
		ImagePath:     imagePath,
		AudioPath:     audioPath,
		Duration:      duration,
		AudioDuration: audioDuration,
		Metadata: map[string]any{
			"location":   scene.Location,
			"time":       scene.Time,
			"atmosphere": scene.Atmosphere,
			"characters": speakers,
			"audio_type": scene.Audio.Type,
			"speaker":    scene.Audio.Speaker,
		},
	}, nil
}

func (r *Renderer) generateImage(ctx context.Context, scene models.StoryboardScene) (string, error) {
	prompt := buildImagePrompt(scene)

	var path string
	err := r.withRetry(ctx, "image", scene.SceneID, func() error {
		data, err := r.images.Generate(ctx, prompt, nil)
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("scene_%d_%d_%s.png", scene.ChapterID, scene.SceneID, uuid.New())
		path, err = r.store.Write(storage.KindImage, filename, data)
		return err
	})
	if err != nil {
		return "", &errdefs.GenerationError{
			Message: fmt.Sprintf("image for scene %d", scene.SceneID),
			Err:     err,
		}
	}
	return path, nil
}

func (r *Renderer) generateAudio(ctx context.Context, scene models.StoryboardScene) (string, error) {
	if strings.TrimSpace(scene.Audio.Text) == "" {
		return r.generateSilentAudio(ctx)
	}

	voiceType := r.selectVoiceType(scene)

	var path string
	err := r.withRetry(ctx, "audio", scene.SceneID, func() error {
		data, err := r.tts.Speak(ctx, scene.Audio.Text, voiceType)
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("audio_%d_%d_%s.mp3", scene.ChapterID, scene.SceneID, uuid.New())
		path, err = r.store.Write(storage.KindAudio, filename, data)
		return err
	})
	if err != nil {
		return "", &errdefs.SynthesisError{
			Message: fmt.Sprintf("audio for scene %d", scene.SceneID),
			Err:     err,
		}
	}
	return path, nil
}

// generateSilentAudio writes a silent placeholder track for speechless scenes.
func (r *Renderer) generateSilentAudio(ctx context.Context) (string, error) {
	path := r.store.Path(storage.KindAudio, fmt.Sprintf("silent_%s.mp3", uuid.New()))
	if err := r.media.CreateSilentAudio(ctx, path, r.cfg.SilentAudioDuration); err != nil {
		return "", &errdefs.SynthesisError{Message: "silent audio placeholder", Err: err}
	}
	return path, nil
}

// withRetry runs fn up to the configured attempt budget with exponential
// backoff (1s, 2s, 4s, ...). The context aborts the wait early.
func (r *Renderer) withRetry(ctx context.Context, op string, sceneID int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.RetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		slog.Warn("Render call failed",
			"task_id", r.store.TaskID(),
			"op", op,
			"scene_id", sceneID,
			"attempt", attempt+1,
			"attempts", r.cfg.RetryAttempts,
			"error", lastErr)
		if attempt < r.cfg.RetryAttempts-1 {
			select {
			case <-time.After(time.Duration(1<<attempt) * r.backoffUnit):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// selectVoiceType picks the synthesis voice for a scene. Narration always
// uses the fixed narrator voice; dialogue resolves the speaker against the
// scene's characters and caches the assignment for the rest of the task.
func (r *Renderer) selectVoiceType(scene models.StoryboardScene) string {
	if scene.Audio.Type == models.ContentTypeNarration {
		return r.cfg.NarratorVoiceType
	}

	speaker := scene.Audio.Speaker
	if speaker != "" {
		if vt, ok := r.voiceCache[speaker]; ok {
			return vt
		}
	}
	for _, c := range scene.Characters {
		if c.Name == speaker {
			vt := matchVoice(c.Gender, c.Age, c.AgeStage, r.cfg.DefaultVoiceType)
			if speaker != "" {
				r.voiceCache[speaker] = vt
			}
			return vt
		}
	}
	return r.cfg.DefaultVoiceType
}

// prepareCharacterVoices assigns voices to every dialogue speaker up front
// so assignments do not depend on scene render order.
func (r *Renderer) prepareCharacterVoices(storyboard *models.StoryboardResult) {
	for _, ch := range storyboard.Chapters {
		for _, sc := range ch.Scenes {
			if sc.Audio.Type != models.ContentTypeDialogue || sc.Audio.Speaker == "" {
				continue
			}
			if _, ok := r.voiceCache[sc.Audio.Speaker]; ok {
				continue
			}
			for _, c := range sc.Characters {
				if c.Name == sc.Audio.Speaker {
					vt := matchVoice(c.Gender, c.Age, c.AgeStage, r.cfg.DefaultVoiceType)
					r.voiceCache[sc.Audio.Speaker] = vt
					slog.Info("Voice assigned", "task_id", r.store.TaskID(), "speaker", sc.Audio.Speaker, "voice_type", vt)
					break
				}
			}
		}
	}
}

// buildImagePrompt appends style and framing parameters to the base prompt.
func buildImagePrompt(scene models.StoryboardScene) string {
	base := scene.Image.Prompt
	if strings.TrimSpace(base) == "" {
		base = scene.Description
	}
	style := "anime style"
	if len(scene.Image.StyleTags) > 0 {
		style = strings.Join(scene.Image.StyleTags, ", ")
	}
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, high quality",
		base, style, scene.Image.ShotType, scene.Image.CameraAngle, scene.Image.Composition, scene.Image.Lighting)
}
