package models

// ParseMode selects the novel parsing strategy.
type ParseMode string

// Parse modes.
const (
	ParseModeSimple   ParseMode = "simple"
	ParseModeEnhanced ParseMode = "enhanced"
)

// IsValid reports whether the mode is a recognized parse mode.
func (m ParseMode) IsValid() bool {
	return m == ParseModeSimple || m == ParseModeEnhanced
}

// ContentType discriminates the speech content of a scene.
type ContentType string

// Scene content types.
const (
	ContentTypeNarration ContentType = "narration"
	ContentTypeDialogue  ContentType = "dialogue"
)

// CharacterAppearance describes the visual attributes of a character.
// Empty string means "unknown"; merge logic keeps the longest non-empty value.
type CharacterAppearance struct {
	Gender   string `json:"gender,omitempty"`
	Age      *int   `json:"age,omitempty"`
	AgeStage string `json:"age_stage,omitempty"`
	Hair     string `json:"hair,omitempty"`
	Eyes     string `json:"eyes,omitempty"`
	Clothing string `json:"clothing,omitempty"`
	Features string `json:"features,omitempty"`
	BodyType string `json:"body_type,omitempty"`
	Height   string `json:"height,omitempty"`
	Skin     string `json:"skin,omitempty"`
}

// AgeVariant captures how a character looks at a different age stage.
type AgeVariant struct {
	AgeStage   string              `json:"age_stage"`
	Appearance CharacterAppearance `json:"appearance"`
}

// CharacterInfo is a character extracted from the novel text.
// Name is the merge key across chunks and must be unique per task.
type CharacterInfo struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Appearance  CharacterAppearance `json:"appearance"`
	Personality string              `json:"personality,omitempty"`
	Role        string              `json:"role,omitempty"`
	AgeVariants []AgeVariant        `json:"age_variants,omitempty"`
}

// Scene is the smallest narrative unit extracted by the parser.
//
// Invariants: if ContentType is dialogue, Speaker and DialogueText are
// present; if narration, Narration is present. SceneID is globally unique
// and dense across chapters.
type Scene struct {
	SceneID              int                            `json:"scene_id"`
	Location             string                         `json:"location,omitempty"`
	Time                 string                         `json:"time,omitempty"`
	Characters           []string                       `json:"characters,omitempty"`
	Description          string                         `json:"description,omitempty"`
	Atmosphere           string                         `json:"atmosphere,omitempty"`
	Lighting             string                         `json:"lighting,omitempty"`
	ContentType          ContentType                    `json:"content_type"`
	Narration            string                         `json:"narration,omitempty"`
	Speaker              string                         `json:"speaker,omitempty"`
	DialogueText         string                         `json:"dialogue_text,omitempty"`
	Action               string                         `json:"action,omitempty"`
	CharacterAppearances map[string]CharacterAppearance `json:"character_appearances,omitempty"`
}

// Chapter is an ordered non-empty sequence of scenes.
// ChapterID is dense starting at 1.
type Chapter struct {
	ChapterID int     `json:"chapter_id"`
	Title     string  `json:"title,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Scenes    []Scene `json:"scenes"`
}

// PlotPoint marks a narrative turning point anchored to a scene.
type PlotPoint struct {
	SceneID     int    `json:"scene_id"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// NovelParseResult is the structured output of the parser stage.
// The same shape is produced by the extraction LLM for a single chunk.
type NovelParseResult struct {
	Characters []CharacterInfo `json:"characters"`
	Chapters   []Chapter       `json:"chapters"`
	PlotPoints []PlotPoint     `json:"plot_points,omitempty"`
}

// TotalScenes returns the number of scenes across all chapters.
func (r *NovelParseResult) TotalScenes() int {
	n := 0
	for _, ch := range r.Chapters {
		n += len(ch.Scenes)
	}
	return n
}

// ParseOptions carries per-request extraction limits.
type ParseOptions struct {
	MaxCharacters int `json:"max_characters,omitempty"`
	MaxScenes     int `json:"max_scenes,omitempty"`
}
