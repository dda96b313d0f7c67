// Package storyboard converts a parsed novel into per-scene rendering plans:
// one image plan, one audio track and an estimated duration per scene. The
// stage is pure; it calls no external services.
package storyboard

import (
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/models"
)

// Defaults for image plan fields the parser leaves empty.
const (
	defaultShotType    = "medium_shot"
	defaultCameraAngle = "eye_level"
	defaultComposition = "centered"
	defaultLighting    = "natural"
)

// Builder plans rendering for parsed novels.
type Builder struct {
	cfg *config.StoryboardConfig
}

// New creates a storyboard builder.
func New(cfg *config.StoryboardConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Create plans every scene of the parse result. Characters referenced by a
// scene are denormalized into the scene with scene-local appearance
// overrides applied field by field.
func (b *Builder) Create(parsed *models.NovelParseResult) *models.StoryboardResult {
	index := characterIndex(parsed.Characters)

	result := &models.StoryboardResult{}
	for _, ch := range parsed.Chapters {
		chapter := models.StoryboardChapter{
			ChapterID: ch.ChapterID,
			Title:     ch.Title,
			Summary:   ch.Summary,
			Scenes:    make([]models.StoryboardScene, 0, len(ch.Scenes)),
		}
		for _, sc := range ch.Scenes {
			scene := b.planScene(sc, ch.ChapterID, index)
			result.TotalDuration += scene.Duration
			result.TotalScenes++
			chapter.Scenes = append(chapter.Scenes, scene)
		}
		result.Chapters = append(result.Chapters, chapter)
	}

	slog.Info("Storyboard created",
		"chapters", len(result.Chapters),
		"scenes", result.TotalScenes,
		"estimated_duration", result.TotalDuration)
	return result
}

func (b *Builder) planScene(sc models.Scene, chapterID int, index map[string]models.CharacterInfo) models.StoryboardScene {
	scene := models.StoryboardScene{
		SceneID:     sc.SceneID,
		ChapterID:   chapterID,
		Location:    sc.Location,
		Time:        sc.Time,
		Atmosphere:  sc.Atmosphere,
		Description: sc.Description,
		Action:      sc.Action,
		Characters:  denormalizeCharacters(sc, index),
		Audio:       b.planAudio(sc),
		Image:       b.planImage(sc),
	}
	scene.Duration = b.estimateDuration(scene.Audio.Text, sc.Action)
	scene.Audio.EstimatedDuration = scene.Duration
	return scene
}

// planAudio maps narration scenes to the fixed narrator track and dialogue
// scenes to their speaker.
func (b *Builder) planAudio(sc models.Scene) models.AudioTrack {
	if sc.ContentType == models.ContentTypeDialogue {
		return models.AudioTrack{
			Type:    models.ContentTypeDialogue,
			Speaker: sc.Speaker,
			Text:    sc.DialogueText,
		}
	}
	return models.AudioTrack{
		Type:    models.ContentTypeNarration,
		Speaker: "narrator",
		Text:    sc.Narration,
	}
}

func (b *Builder) planImage(sc models.Scene) models.ImagePlan {
	return models.ImagePlan{
		Prompt:      buildImagePrompt(sc),
		StyleTags:   b.cfg.StyleTags,
		ShotType:    defaultShotType,
		CameraAngle: defaultCameraAngle,
		Composition: defaultComposition,
		Lighting:    orDefault(sc.Lighting, defaultLighting),
	}
}

// estimateDuration derives the scene duration from speech length plus a
// fixed allowance per action, clamped to the configured range and rounded
// to 0.1s.
func (b *Builder) estimateDuration(speech, action string) float64 {
	d := float64(utf8.RuneCountInString(speech)) / float64(b.cfg.DialogueCharsPerSecond)
	if strings.TrimSpace(action) != "" {
		d += b.cfg.ActionDuration
	}
	d = math.Max(b.cfg.MinSceneDuration, math.Min(b.cfg.MaxSceneDuration, d))
	return math.Round(d*10) / 10
}

// buildImagePrompt assembles the generation prompt from whatever scene
// attributes are present.
func buildImagePrompt(sc models.Scene) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{sc.Location, sc.Time, sc.Description, sc.Atmosphere, sc.Action} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func characterIndex(chars []models.CharacterInfo) map[string]models.CharacterInfo {
	index := make(map[string]models.CharacterInfo, len(chars))
	for _, c := range chars {
		index[c.Name] = c
	}
	return index
}

// denormalizeCharacters resolves each referenced character against the
// project-level info, then applies the scene-local appearance override
// field by field, non-empty values winning.
func denormalizeCharacters(sc models.Scene, index map[string]models.CharacterInfo) []models.CharacterRenderInfo {
	out := make([]models.CharacterRenderInfo, 0, len(sc.Characters))
	for _, name := range sc.Characters {
		base, known := index[name]
		info := models.CharacterRenderInfo{Name: name}
		if known {
			info = renderInfo(base)
		}
		if override, ok := sc.CharacterAppearances[name]; ok {
			applyOverride(&info, override)
		}
		out = append(out, info)
	}
	return out
}

func renderInfo(c models.CharacterInfo) models.CharacterRenderInfo {
	return models.CharacterRenderInfo{
		Name:        c.Name,
		Gender:      c.Appearance.Gender,
		Age:         c.Appearance.Age,
		AgeStage:    c.Appearance.AgeStage,
		Hair:        c.Appearance.Hair,
		Eyes:        c.Appearance.Eyes,
		Clothing:    c.Appearance.Clothing,
		Features:    c.Appearance.Features,
		BodyType:    c.Appearance.BodyType,
		Height:      c.Appearance.Height,
		Skin:        c.Appearance.Skin,
		Personality: c.Personality,
		Role:        c.Role,
	}
}

func applyOverride(info *models.CharacterRenderInfo, o models.CharacterAppearance) {
	setIf(&info.Gender, o.Gender)
	setIf(&info.AgeStage, o.AgeStage)
	setIf(&info.Hair, o.Hair)
	setIf(&info.Eyes, o.Eyes)
	setIf(&info.Clothing, o.Clothing)
	setIf(&info.Features, o.Features)
	setIf(&info.BodyType, o.BodyType)
	setIf(&info.Height, o.Height)
	setIf(&info.Skin, o.Skin)
	if o.Age != nil {
		info.Age = o.Age
	}
}

func setIf(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
