package models

// RenderedScene is a scene for which both media files exist on disk.
// Invariant: Duration >= AudioDuration.
type RenderedScene struct {
	SceneID       int            `json:"scene_id"`
	ChapterID     int            `json:"chapter_id"`
	ImagePath     string         `json:"image_path"`
	AudioPath     string         `json:"audio_path"`
	Duration      float64        `json:"duration"`
	AudioDuration float64        `json:"audio_duration"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// RenderedChapter aggregates the rendered scenes of one chapter.
type RenderedChapter struct {
	ChapterID     int             `json:"chapter_id"`
	Title         string          `json:"title,omitempty"`
	Scenes        []RenderedScene `json:"scenes"`
	TotalDuration float64         `json:"total_duration"`
}

// RenderResult is the output of the scene renderer stage.
type RenderResult struct {
	Chapters        []RenderedChapter `json:"chapters"`
	TotalDuration   float64           `json:"total_duration"`
	TotalScenes     int               `json:"total_scenes"`
	OutputDirectory string            `json:"output_directory"`
}

// ComposeResult is the output of the composer stage.
type ComposeResult struct {
	VideoPath     string  `json:"video_path"`
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"file_size"`
	TotalScenes   int     `json:"total_scenes"`
	TotalChapters int     `json:"total_chapters"`
}
