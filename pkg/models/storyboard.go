package models

// CharacterRenderInfo is the denormalized per-scene view of a character,
// copied from project-level character info with scene-local overrides applied.
type CharacterRenderInfo struct {
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	Age         *int   `json:"age,omitempty"`
	AgeStage    string `json:"age_stage,omitempty"`
	Hair        string `json:"hair,omitempty"`
	Eyes        string `json:"eyes,omitempty"`
	Clothing    string `json:"clothing,omitempty"`
	Features    string `json:"features,omitempty"`
	BodyType    string `json:"body_type,omitempty"`
	Height      string `json:"height,omitempty"`
	Skin        string `json:"skin,omitempty"`
	Personality string `json:"personality,omitempty"`
	Role        string `json:"role,omitempty"`
}

// AudioTrack is the single speech track planned for a scene.
type AudioTrack struct {
	Type              ContentType `json:"type"`
	Speaker           string      `json:"speaker,omitempty"`
	Text              string      `json:"text,omitempty"`
	EstimatedDuration float64     `json:"estimated_duration"`
}

// ImagePlan is the single still-image plan for a scene.
type ImagePlan struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	StyleTags      []string `json:"style_tags,omitempty"`
	ShotType       string   `json:"shot_type,omitempty"`
	CameraAngle    string   `json:"camera_angle,omitempty"`
	Composition    string   `json:"composition,omitempty"`
	Lighting       string   `json:"lighting,omitempty"`
}

// StoryboardScene extends a parsed scene with rendering parameters.
type StoryboardScene struct {
	SceneID     int                   `json:"scene_id"`
	ChapterID   int                   `json:"chapter_id"`
	Location    string                `json:"location,omitempty"`
	Time        string                `json:"time,omitempty"`
	Atmosphere  string                `json:"atmosphere,omitempty"`
	Description string                `json:"description,omitempty"`
	Characters  []CharacterRenderInfo `json:"characters,omitempty"`
	Audio       AudioTrack            `json:"audio"`
	Image       ImagePlan             `json:"image"`
	Duration    float64               `json:"duration"`
	Action      string                `json:"action,omitempty"`
}

// StoryboardChapter groups the storyboard scenes of one chapter.
type StoryboardChapter struct {
	ChapterID int               `json:"chapter_id"`
	Title     string            `json:"title,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Scenes    []StoryboardScene `json:"scenes"`
}

// StoryboardResult is the output of the storyboard stage.
type StoryboardResult struct {
	Chapters      []StoryboardChapter `json:"chapters"`
	TotalDuration float64             `json:"total_duration"`
	TotalScenes   int                 `json:"total_scenes"`
}
