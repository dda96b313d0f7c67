// Package errdefs defines the error kinds shared by the pipeline stages and
// mapped to HTTP responses at the API boundary. Stages return these instead
// of throwing across component boundaries; the orchestrator selects on kind.
package errdefs

import (
	"errors"
	"fmt"
)

// ValidationError reports caller-visible invalid input. Surfaced as 4xx by
// the API, or as a stage failure inside the pipeline.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// APIError reports an unreachable or non-2xx external service.
// Retriable only where the renderer's retry loop specifies.
type APIError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s API error: status %d: %s", e.Service, e.Status, e.Body)
	}
	return fmt.Sprintf("%s API error: %v", e.Service, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ParseError reports a malformed external response. Non-retriable.
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s returned malformed response: %v", e.Service, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GenerationError reports a well-formed but semantically empty or unusable
// generation response.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Err)
	}
	return "generation failed: " + e.Message
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SynthesisError reports a failed or unusable speech synthesis.
type SynthesisError struct {
	Message string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech synthesis failed: %s: %v", e.Message, e.Err)
	}
	return "speech synthesis failed: " + e.Message
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// CompositionError reports a media toolchain failure (nonzero exit, timeout,
// missing input). Scene and Chapter identify where assembly stopped.
type CompositionError struct {
	Stage   string
	Scene   int
	Chapter int
	Err     error
}

func (e *CompositionError) Error() string {
	switch {
	case e.Scene != 0:
		return fmt.Sprintf("composition failed at %s (chapter %d, scene %d): %v", e.Stage, e.Chapter, e.Scene, e.Err)
	case e.Chapter != 0:
		return fmt.Sprintf("composition failed at %s (chapter %d): %v", e.Stage, e.Chapter, e.Err)
	default:
		return fmt.Sprintf("composition failed at %s: %v", e.Stage, e.Err)
	}
}

func (e *CompositionError) Unwrap() error { return e.Err }

// StorageError reports a failed filesystem write in a task workspace.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DownloadError reports that media referenced by URL could not be fetched.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
