// Package storage manages per-task filesystem workspaces.
//
// Each task owns a directory tree <base>/<task_id>/{images,audio,videos,temp}.
// Workspaces are never shared across tasks.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IsPHao/storyreel/pkg/errdefs"
)

// Kind selects a workspace subdirectory.
type Kind string

// Workspace subdirectories.
const (
	KindImage Kind = "images"
	KindAudio Kind = "audio"
	KindVideo Kind = "videos"
	KindTemp  Kind = "temp"
)

var kinds = []Kind{KindImage, KindAudio, KindVideo, KindTemp}

// TaskStorage is the workspace of a single task. All paths it returns are
// absolute. Creation is idempotent.
type TaskStorage struct {
	taskID string
	root   string
}

// NewTaskStorage creates (or reopens) the workspace for a task.
func NewTaskStorage(basePath, taskID string) (*TaskStorage, error) {
	abs, err := filepath.Abs(filepath.Join(basePath, taskID))
	if err != nil {
		return nil, &errdefs.StorageError{Op: "resolve", Path: basePath, Err: err}
	}

	s := &TaskStorage{taskID: taskID, root: abs}
	for _, k := range kinds {
		if err := os.MkdirAll(s.dir(k), 0o755); err != nil {
			return nil, &errdefs.StorageError{Op: "mkdir", Path: s.dir(k), Err: err}
		}
	}
	return s, nil
}

// TaskID returns the owning task's ID.
func (s *TaskStorage) TaskID() string { return s.taskID }

// Root returns the absolute workspace root directory.
func (s *TaskStorage) Root() string { return s.root }

func (s *TaskStorage) dir(kind Kind) string {
	return filepath.Join(s.root, string(kind))
}

// Path returns the absolute path a file of the given kind would have.
// It does not check existence; filename generation is the caller's job.
func (s *TaskStorage) Path(kind Kind, filename string) string {
	return filepath.Join(s.dir(kind), filename)
}

// Write stores data under the given kind and filename and returns the
// absolute path. The write is atomic per file: data lands in a temp file
// first and is renamed into place, so a partially written artifact is never
// observed. An existing file with the same name is overwritten.
func (s *TaskStorage) Write(kind Kind, filename string, data []byte) (string, error) {
	final := s.Path(kind, filename)

	tmp, err := os.CreateTemp(s.dir(KindTemp), filename+".*")
	if err != nil {
		return "", &errdefs.StorageError{Op: "create", Path: final, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &errdefs.StorageError{Op: "write", Path: final, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &errdefs.StorageError{Op: "close", Path: final, Err: err}
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", &errdefs.StorageError{Op: "rename", Path: final, Err: err}
	}

	slog.Debug("Artifact written", "task_id", s.taskID, "kind", kind, "path", final, "bytes", len(data))
	return final, nil
}

// ClearTemp removes every entry in the temp subdirectory. Failures on
// individual entries are logged and skipped.
func (s *TaskStorage) ClearTemp() error {
	entries, err := os.ReadDir(s.dir(KindTemp))
	if err != nil {
		return &errdefs.StorageError{Op: "readdir", Path: s.dir(KindTemp), Err: err}
	}
	for _, e := range entries {
		p := filepath.Join(s.dir(KindTemp), e.Name())
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("Failed to remove temp entry", "task_id", s.taskID, "path", p, "error", err)
		}
	}
	return nil
}

// Remove deletes the whole workspace. Called when a task is evicted or
// explicitly released.
func (s *TaskStorage) Remove() error {
	if err := os.RemoveAll(s.root); err != nil {
		return &errdefs.StorageError{Op: "remove", Path: s.root, Err: err}
	}
	slog.Info("Task workspace removed", "task_id", s.taskID, "root", s.root)
	return nil
}

// RemoveWorkspace deletes the workspace of a task without creating it
// first. Used by retention eviction, where the workspace may or may not
// still exist.
func RemoveWorkspace(basePath, taskID string) error {
	root, err := filepath.Abs(filepath.Join(basePath, taskID))
	if err != nil {
		return &errdefs.StorageError{Op: "resolve", Path: basePath, Err: err}
	}
	if err := os.RemoveAll(root); err != nil {
		return &errdefs.StorageError{Op: "remove", Path: root, Err: err}
	}
	return nil
}

// FinalVideoPath returns the canonical location of the finished video.
func (s *TaskStorage) FinalVideoPath() string {
	return s.Path(KindVideo, "final.mp4")
}

// String implements fmt.Stringer for log output.
func (s *TaskStorage) String() string {
	return fmt.Sprintf("TaskStorage(%s)", s.root)
}
