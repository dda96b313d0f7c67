package renderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/storage"
)

type fakeImages struct {
	mu      sync.Mutex
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return []byte("png-bytes"), nil
}

type fakeTTS struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	voices []string
}

func (f *fakeTTS) Speak(_ context.Context, _ string, voiceType string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.voices = append(f.voices, voiceType)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return []byte("mp3-bytes"), nil
}

type fakeToolchain struct {
	probeDuration float64
	probeErr      error
	silentCalls   int
}

func (f *fakeToolchain) ProbeDuration(context.Context, string) (float64, error) {
	return f.probeDuration, f.probeErr
}

func (f *fakeToolchain) CreateSilentAudio(_ context.Context, path string, _ float64) error {
	f.silentCalls++
	return os.WriteFile(path, []byte("silence"), 0o644)
}

func newTestRenderer(t *testing.T, images *fakeImages, tts *fakeTTS, tc *fakeToolchain) *Renderer {
	t.Helper()
	store, err := storage.NewTaskStorage(t.TempDir(), "task-1")
	require.NoError(t, err)
	cfg := config.DefaultRendererConfig()
	r := New(cfg, images, tts, store, tc)
	r.backoffUnit = time.Millisecond
	return r
}

func scene(id int, text string) models.StoryboardScene {
	return models.StoryboardScene{
		SceneID:   id,
		ChapterID: 1,
		Audio:     models.AudioTrack{Type: models.ContentTypeNarration, Speaker: "narrator", Text: text},
		Image:     models.ImagePlan{Prompt: fmt.Sprintf("scene %d", id)},
		Duration:  4.0,
	}
}

func board(scenes ...models.StoryboardScene) *models.StoryboardResult {
	return &models.StoryboardResult{
		Chapters:    []models.StoryboardChapter{{ChapterID: 1, Scenes: scenes}},
		TotalScenes: len(scenes),
	}
}

func TestRenderProducesBothArtifacts(t *testing.T) {
	images := &fakeImages{}
	tts := &fakeTTS{}
	r := newTestRenderer(t, images, tts, &fakeToolchain{probeDuration: 3.0})

	res, err := r.Render(context.Background(), board(scene(1, "hello there")))

	require.NoError(t, err)
	require.Len(t, res.Chapters, 1)
	require.Len(t, res.Chapters[0].Scenes, 1)
	sc := res.Chapters[0].Scenes[0]
	assert.FileExists(t, sc.ImagePath)
	assert.FileExists(t, sc.AudioPath)
	assert.Equal(t, 1, images.calls)
	assert.Equal(t, 1, tts.calls)
}

func TestRenderDurationIsMaxOfPlannedAndAudio(t *testing.T) {
	t.Run("audio longer than plan", func(t *testing.T) {
		r := newTestRenderer(t, &fakeImages{}, &fakeTTS{}, &fakeToolchain{probeDuration: 7.5})
		res, err := r.Render(context.Background(), board(scene(1, "text")))
		require.NoError(t, err)
		sc := res.Chapters[0].Scenes[0]
		assert.Equal(t, 7.5, sc.Duration)
		assert.Equal(t, 7.5, sc.AudioDuration)
	})

	t.Run("plan longer than audio", func(t *testing.T) {
		r := newTestRenderer(t, &fakeImages{}, &fakeTTS{}, &fakeToolchain{probeDuration: 2.0})
		res, err := r.Render(context.Background(), board(scene(1, "text")))
		require.NoError(t, err)
		assert.Equal(t, 4.0, res.Chapters[0].Scenes[0].Duration)
	})
}

func TestRenderProbeFailureAssumesFallbackDuration(t *testing.T) {
	tc := &fakeToolchain{probeErr: errors.New("ffprobe: invalid data found")}
	r := newTestRenderer(t, &fakeImages{}, &fakeTTS{}, tc)

	res, err := r.Render(context.Background(), board(scene(1, "text")))

	require.NoError(t, err)
	sc := res.Chapters[0].Scenes[0]
	assert.Equal(t, fallbackAudioDuration, sc.AudioDuration)
	// The planned 4s still wins for the on-screen clip.
	assert.Equal(t, 4.0, sc.Duration)
}

func TestRenderRetriesTransientFailures(t *testing.T) {
	images := &fakeImages{errs: []error{errors.New("503"), errors.New("503"), nil}}
	r := newTestRenderer(t, images, &fakeTTS{}, &fakeToolchain{probeDuration: 3.0})

	res, err := r.Render(context.Background(), board(scene(1, "text")))

	require.NoError(t, err)
	assert.Equal(t, 3, images.calls)
	assert.FileExists(t, res.Chapters[0].Scenes[0].ImagePath)
}

func TestRenderFailsAfterRetryBudget(t *testing.T) {
	boom := errors.New("503")
	images := &fakeImages{errs: []error{boom, boom, boom}}
	r := newTestRenderer(t, images, &fakeTTS{}, &fakeToolchain{probeDuration: 3.0})

	_, err := r.Render(context.Background(), board(scene(1, "text")))

	var gerr *errdefs.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 3, images.calls)
}

func TestRenderSilentAudioForSpeechlessScene(t *testing.T) {
	tts := &fakeTTS{}
	tc := &fakeToolchain{probeDuration: 3.0}
	r := newTestRenderer(t, &fakeImages{}, tts, tc)

	res, err := r.Render(context.Background(), board(scene(1, "   ")))

	require.NoError(t, err)
	assert.Equal(t, 0, tts.calls)
	assert.Equal(t, 1, tc.silentCalls)
	assert.FileExists(t, res.Chapters[0].Scenes[0].AudioPath)
}

func TestRenderRejectsSceneWithoutPrompt(t *testing.T) {
	r := newTestRenderer(t, &fakeImages{}, &fakeTTS{}, &fakeToolchain{})
	sc := scene(1, "text")
	sc.Image.Prompt = ""
	sc.Description = ""

	_, err := r.Render(context.Background(), board(sc))

	var verr *errdefs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNarrationAlwaysUsesNarratorVoice(t *testing.T) {
	tts := &fakeTTS{}
	r := newTestRenderer(t, &fakeImages{}, tts, &fakeToolchain{probeDuration: 3.0})

	_, err := r.Render(context.Background(), board(scene(1, "narrated text")))

	require.NoError(t, err)
	require.Len(t, tts.voices, 1)
	assert.Equal(t, "qiniu_zh_male_tyygjs", tts.voices[0])
}

func TestDialogueVoiceStableAcrossScenes(t *testing.T) {
	age := 20
	mk := func(id int) models.StoryboardScene {
		return models.StoryboardScene{
			SceneID:   id,
			ChapterID: 1,
			Audio:     models.AudioTrack{Type: models.ContentTypeDialogue, Speaker: "Alice", Text: "line"},
			Image:     models.ImagePlan{Prompt: "p"},
			Duration:  4.0,
			Characters: []models.CharacterRenderInfo{
				{Name: "Alice", Gender: "female", Age: &age},
			},
		}
	}
	tts := &fakeTTS{}
	r := newTestRenderer(t, &fakeImages{}, tts, &fakeToolchain{probeDuration: 3.0})

	_, err := r.Render(context.Background(), board(mk(1), mk(2)))

	require.NoError(t, err)
	require.Len(t, tts.voices, 2)
	assert.Equal(t, "qiniu_zh_female_tmjxxy", tts.voices[0])
	assert.Equal(t, tts.voices[0], tts.voices[1])
}

func TestUnknownSpeakerGetsDefaultVoice(t *testing.T) {
	sc := models.StoryboardScene{
		SceneID:   1,
		ChapterID: 1,
		Audio:     models.AudioTrack{Type: models.ContentTypeDialogue, Speaker: "Ghost", Text: "boo"},
		Image:     models.ImagePlan{Prompt: "p"},
		Duration:  4.0,
	}
	tts := &fakeTTS{}
	r := newTestRenderer(t, &fakeImages{}, tts, &fakeToolchain{probeDuration: 3.0})

	_, err := r.Render(context.Background(), board(sc))

	require.NoError(t, err)
	require.Len(t, tts.voices, 1)
	assert.Equal(t, "qiniu_zh_female_wwxkjx", tts.voices[0])
}

func TestMatchVoice(t *testing.T) {
	age := func(n int) *int { return &n }

	tests := []struct {
		name     string
		gender   string
		age      *int
		ageStage string
		want     string
	}{
		{"male child by age", "male", age(8), "", "qiniu_zh_male_hlsnkk"},
		{"female young by age", "female", age(18), "", "qiniu_zh_female_tmjxxy"},
		{"male adult by age", "male", age(40), "", "qiniu_zh_male_ybxknjs"},
		{"female elder by age", "female", age(70), "", "qiniu_zh_female_cxjxgw"},
		{"child by cjk keyword", "female", nil, "儿童时期", "qiniu_zh_female_dmytwz"},
		{"young by student keyword", "male", nil, "学生", "qiniu_zh_male_ljfdxz"},
		{"elder by keyword", "female", nil, "老年", "qiniu_zh_female_cxjxgw"},
		{"unknown stage defaults to adult", "male", nil, "中年武士", "qiniu_zh_male_ybxknjs"},
		{"no age info defaults to adult", "female", nil, "", "qiniu_zh_female_wwxkjx"},
		{"unknown gender falls back", "robot", nil, "", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchVoice(tt.gender, tt.age, tt.ageStage, "fallback"))
		})
	}
}

func TestBuildImagePrompt(t *testing.T) {
	sc := models.StoryboardScene{
		Description: "fallback desc",
		Image: models.ImagePlan{
			Prompt:      "a castle at dusk",
			StyleTags:   []string{"anime", "watercolor"},
			ShotType:    "wide_shot",
			CameraAngle: "low_angle",
			Composition: "rule_of_thirds",
			Lighting:    "golden_hour",
		},
	}
	got := buildImagePrompt(sc)
	assert.Equal(t, "a castle at dusk, anime, watercolor, wide_shot, low_angle, rule_of_thirds, golden_hour, high quality", got)

	sc.Image.Prompt = ""
	assert.Contains(t, buildImagePrompt(sc), "fallback desc")
}
