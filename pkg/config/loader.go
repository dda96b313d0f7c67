package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read the YAML file (missing file falls back to built-in defaults)
//  2. Expand environment variables ({{.VAR}} templates)
//  3. Parse YAML into structs
//  4. Fill unset fields from built-in defaults
//  5. Apply flat environment overrides (MEDIA_ROOT, CORE_MAX_RETRIES, ...)
//  6. Validate and return
func Initialize(configPath string) (*Config, error) {
	log := slog.With("config_path", configPath)
	log.Info("Initializing configuration")

	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"storage_base", cfg.Storage.BasePath,
		"provider_endpoint", cfg.Providers.Endpoint,
		"max_concurrent_tasks", cfg.Queue.MaxConcurrentTasks)

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := ExpandEnv(data)
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Config file not found, using built-in defaults", "path", configPath)
	default:
		return nil, err
	}

	// Fill every unset field from the built-in defaults.
	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides maps the flat environment contract onto the config tree.
// These variables win over both YAML and defaults.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		cfg.Storage.BasePath = v
	}
	if v := os.Getenv("MEDIA_URL_PREFIX"); v != "" {
		cfg.Server.MediaURLPrefix = v
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Server.BackendBaseURL = v
	}
	if v := os.Getenv("CORE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Renderer.RetryAttempts = n
		} else {
			slog.Warn("Ignoring invalid CORE_MAX_RETRIES", "value", v)
		}
	}
	if v := os.Getenv("CORE_TASK_TIMEOUT"); v != "" {
		if d, err := parseTimeout(v); err == nil {
			cfg.Queue.TaskTimeout = d
		} else {
			slog.Warn("Ignoring invalid CORE_TASK_TIMEOUT", "value", v)
		}
	}
}

// parseTimeout accepts either a Go duration string ("30m") or a bare number
// of seconds ("1800").
func parseTimeout(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}
