package config

import "fmt"

// Validator validates configuration comprehensively with clear error
// messages (fail-fast: stops at first error).
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation in dependency order.
func (v *Validator) ValidateAll() error {
	if err := v.validateStorage(); err != nil {
		return err
	}
	if err := v.validateProviders(); err != nil {
		return err
	}
	if err := v.validateParser(); err != nil {
		return err
	}
	if err := v.validateStoryboard(); err != nil {
		return err
	}
	if err := v.validateRenderer(); err != nil {
		return err
	}
	if err := v.validateComposer(); err != nil {
		return err
	}
	return v.validateQueue()
}

func (v *Validator) validateStorage() error {
	if v.cfg.Storage.BasePath == "" {
		return NewValidationError("storage", "base_path", fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateProviders() error {
	p := v.cfg.Providers
	if p.Endpoint == "" {
		return NewValidationError("providers", "endpoint", fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	if p.Timeout <= 0 {
		return NewValidationError("providers", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if p.TTSSpeedRatio <= 0 {
		return NewValidationError("providers", "tts_speed_ratio", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateParser() error {
	p := v.cfg.Parser
	if p.MinTextLength <= 0 {
		return NewValidationError("parser", "min_text_length", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if p.MaxTextLength <= p.MinTextLength {
		return NewValidationError("parser", "max_text_length", fmt.Errorf("%w: must exceed min_text_length", ErrInvalidValue))
	}
	if p.ChunkSize <= 0 {
		return NewValidationError("parser", "chunk_size", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateStoryboard() error {
	s := v.cfg.Storyboard
	if s.DialogueCharsPerSecond <= 0 {
		return NewValidationError("storyboard", "dialogue_chars_per_second", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if s.MinSceneDuration <= 0 || s.MaxSceneDuration < s.MinSceneDuration {
		return NewValidationError("storyboard", "max_scene_duration", fmt.Errorf("%w: duration range [%v, %v] is invalid", ErrInvalidValue, s.MinSceneDuration, s.MaxSceneDuration))
	}
	return nil
}

func (v *Validator) validateRenderer() error {
	r := v.cfg.Renderer
	if r.RetryAttempts <= 0 {
		return NewValidationError("renderer", "retry_attempts", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.NarratorVoiceType == "" {
		return NewValidationError("renderer", "narrator_voice_type", fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	if r.DefaultVoiceType == "" {
		return NewValidationError("renderer", "default_voice_type", fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateComposer() error {
	c := v.cfg.Composer
	if c.Timeout <= 0 {
		return NewValidationError("composer", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Codec == "" {
		return NewValidationError("composer", "codec", fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.MaxConcurrentTasks <= 0 {
		return NewValidationError("queue", "max_concurrent_tasks", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}
