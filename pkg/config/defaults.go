package config

import "time"

// Default returns the complete built-in configuration. User YAML overrides
// individual fields; everything not mentioned keeps these values.
func Default() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Storage:    DefaultStorageConfig(),
		Providers:  DefaultProvidersConfig(),
		Parser:     DefaultParserConfig(),
		Storyboard: DefaultStoryboardConfig(),
		Renderer:   DefaultRendererConfig(),
		Composer:   DefaultComposerConfig(),
		Queue:      DefaultQueueConfig(),
		Retention:  DefaultRetentionConfig(),
	}
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTPPort:       "8000",
		MediaURLPrefix: "/media",
		BackendBaseURL: "",
	}
}

// DefaultStorageConfig returns the built-in storage defaults.
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		BasePath: "./data/tasks",
	}
}

// DefaultProvidersConfig returns the built-in provider defaults.
func DefaultProvidersConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Endpoint:      "https://openai.qiniu.com",
		LLMModel:      "deepseek-v3",
		ImageModel:    "stable-diffusion-v1-5",
		ImageSize:     "512x512",
		TTSEncoding:   "mp3",
		TTSSpeedRatio: 1.0,
		Timeout:       60 * time.Second,
	}
}

// DefaultParserConfig returns the built-in parser defaults.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		MinTextLength: 100,
		MaxTextLength: 100000,
		ChunkSize:     4000,
		MaxCharacters: 10,
		MaxScenes:     30,
	}
}

// DefaultStoryboardConfig returns the built-in storyboard defaults.
func DefaultStoryboardConfig() *StoryboardConfig {
	return &StoryboardConfig{
		DialogueCharsPerSecond: 3,
		ActionDuration:         1.5,
		MinSceneDuration:       3,
		MaxSceneDuration:       10,
		StyleTags:              []string{"anime"},
	}
}

// DefaultRendererConfig returns the built-in renderer defaults.
func DefaultRendererConfig() *RendererConfig {
	return &RendererConfig{
		RetryAttempts:       3,
		NarratorVoiceType:   "qiniu_zh_male_tyygjs",
		DefaultVoiceType:    "qiniu_zh_female_wwxkjx",
		SilentAudioDuration: 3.0,
	}
}

// DefaultComposerConfig returns the built-in composer defaults.
func DefaultComposerConfig() *ComposerConfig {
	return &ComposerConfig{
		Timeout:      600 * time.Second,
		Codec:        "libx264",
		Preset:       "medium",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
	}
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxConcurrentTasks:      4,
		TaskTimeout:             0,
		GracefulShutdownTimeout: 10 * time.Minute,
	}
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		TaskTTL:       time.Hour,
		SweepInterval: 60 * time.Second,
	}
}
