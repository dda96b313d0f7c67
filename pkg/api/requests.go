package api

// UploadOptions carries optional extraction limits for a generation request.
type UploadOptions struct {
	MaxCharacters int `json:"max_characters,omitempty"`
	MaxScenes     int `json:"max_scenes,omitempty"`
}

// UploadNovelRequest is the body of POST /api/v1/novels/upload.
type UploadNovelRequest struct {
	NovelText string         `json:"novel_text"`
	Mode      string         `json:"mode,omitempty"`
	Options   *UploadOptions `json:"options,omitempty"`
}
