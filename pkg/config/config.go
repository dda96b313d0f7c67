// Package config loads, validates, and exposes the storyreel configuration.
package config

import "time"

// Config is the fully loaded and validated service configuration.
type Config struct {
	Server     *ServerConfig     `yaml:"server"`
	Storage    *StorageConfig    `yaml:"storage"`
	Providers  *ProvidersConfig  `yaml:"providers"`
	Parser     *ParserConfig     `yaml:"parser"`
	Storyboard *StoryboardConfig `yaml:"storyboard"`
	Renderer   *RendererConfig   `yaml:"renderer"`
	Composer   *ComposerConfig   `yaml:"composer"`
	Queue      *QueueConfig      `yaml:"queue"`
	Retention  *RetentionConfig  `yaml:"retention"`
}

// ServerConfig groups HTTP server settings.
type ServerConfig struct {
	// HTTPPort is the listen port for the API server.
	HTTPPort string `yaml:"http_port"`

	// AllowedWSOrigins is the WebSocket origin allowlist. Empty accepts all
	// origins (development default).
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`

	// MediaURLPrefix is the public URL prefix under which finished videos
	// are served (maps MEDIA_URL_PREFIX).
	MediaURLPrefix string `yaml:"media_url_prefix"`

	// BackendBaseURL is the externally visible base URL used when rendering
	// absolute media URLs for clients (maps BACKEND_BASE_URL).
	BackendBaseURL string `yaml:"backend_base_url"`
}

// StorageConfig groups task workspace settings.
type StorageConfig struct {
	// BasePath is the root directory for per-task workspaces (maps MEDIA_ROOT).
	BasePath string `yaml:"base_path"`
}

// ProvidersConfig groups the external generative service settings.
// APIKey is injected via environment expansion ({{.PROVIDER_API_KEY}}).
type ProvidersConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`

	LLMModel string `yaml:"llm_model"`

	ImageModel string `yaml:"image_model"`
	ImageSize  string `yaml:"image_size"`

	TTSEncoding   string  `yaml:"tts_encoding"`
	TTSSpeedRatio float64 `yaml:"tts_speed_ratio"`

	// Timeout bounds every individual provider call.
	Timeout time.Duration `yaml:"timeout"`
}

// ParserConfig groups novel parsing limits.
type ParserConfig struct {
	MinTextLength int `yaml:"min_text_length"`
	MaxTextLength int `yaml:"max_text_length"`

	// ChunkSize is the target chunk length in code points for enhanced mode.
	ChunkSize int `yaml:"chunk_size"`

	MaxCharacters int `yaml:"max_characters"`
	MaxScenes     int `yaml:"max_scenes"`
}

// StoryboardConfig groups scene planning parameters.
type StoryboardConfig struct {
	// DialogueCharsPerSecond paces the speech duration estimate.
	DialogueCharsPerSecond float64 `yaml:"dialogue_chars_per_second"`

	// ActionDuration is the per-action time added to the estimate.
	ActionDuration float64 `yaml:"action_duration"`

	MinSceneDuration float64 `yaml:"min_scene_duration"`
	MaxSceneDuration float64 `yaml:"max_scene_duration"`

	// StyleTags are the default image style tags when the extraction LLM
	// does not override them.
	StyleTags []string `yaml:"style_tags"`
}

// RendererConfig groups scene rendering settings.
type RendererConfig struct {
	// RetryAttempts is the per-call retry budget for image and TTS requests
	// (maps CORE_MAX_RETRIES).
	RetryAttempts int `yaml:"retry_attempts"`

	NarratorVoiceType string `yaml:"narrator_voice_type"`
	DefaultVoiceType  string `yaml:"default_voice_type"`

	// SilentAudioDuration is the length of the generated silent placeholder.
	SilentAudioDuration float64 `yaml:"silent_audio_duration"`
}

// ComposerConfig groups media toolchain settings.
type ComposerConfig struct {
	// Timeout bounds every ffmpeg/ffprobe subprocess invocation.
	Timeout time.Duration `yaml:"timeout"`

	Codec        string `yaml:"codec"`
	Preset       string `yaml:"preset"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

// QueueConfig contains task worker pool configuration.
type QueueConfig struct {
	// MaxConcurrentTasks bounds how many pipelines run at once.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`

	// TaskTimeout is the configurable whole-task ceiling; zero disables it
	// (maps CORE_TASK_TIMEOUT).
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active tasks
	// to complete during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// RetentionConfig controls task eviction.
type RetentionConfig struct {
	// TaskTTL is how long terminal tasks are kept after completion.
	TaskTTL time.Duration `yaml:"task_ttl"`

	// SweepInterval is how often the eviction loop runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}
