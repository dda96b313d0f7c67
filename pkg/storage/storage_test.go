package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskStorageCreatesWorkspace(t *testing.T) {
	base := t.TempDir()
	s, err := NewTaskStorage(base, "t1")
	require.NoError(t, err)

	for _, kind := range []Kind{KindImage, KindAudio, KindVideo, KindTemp} {
		info, err := os.Stat(filepath.Join(s.Root(), string(kind)))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.True(t, filepath.IsAbs(s.Root()))
	assert.Equal(t, "t1", s.TaskID())

	// Reopening is idempotent.
	_, err = NewTaskStorage(base, "t1")
	require.NoError(t, err)
}

func TestWriteReturnsAbsolutePath(t *testing.T) {
	s, err := NewTaskStorage(t.TempDir(), "t1")
	require.NoError(t, err)

	path, err := s.Write(KindImage, "scene_1_1.png", []byte("png"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, s.Path(KindImage, "scene_1_1.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestWriteOverwritesExisting(t *testing.T) {
	s, err := NewTaskStorage(t.TempDir(), "t1")
	require.NoError(t, err)

	_, err = s.Write(KindAudio, "a.mp3", []byte("old"))
	require.NoError(t, err)
	path, err := s.Write(KindAudio, "a.mp3", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestWriteLeavesNoTempResidue(t *testing.T) {
	s, err := NewTaskStorage(t.TempDir(), "t1")
	require.NoError(t, err)

	_, err = s.Write(KindVideo, "clip.mp4", []byte("v"))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Path(KindTemp, ""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearTemp(t *testing.T) {
	s, err := NewTaskStorage(t.TempDir(), "t1")
	require.NoError(t, err)

	tmpFile := s.Path(KindTemp, "scratch.mp4")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0o644))
	keep, err := s.Write(KindVideo, "final.mp4", []byte("v"))
	require.NoError(t, err)

	require.NoError(t, s.ClearTemp())

	_, err = os.Stat(tmpFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}

func TestRemoveDeletesWorkspace(t *testing.T) {
	base := t.TempDir()
	s, err := NewTaskStorage(base, "t1")
	require.NoError(t, err)
	_, err = s.Write(KindImage, "a.png", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove())
	_, err = os.Stat(s.Root())
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveWorkspaceWithoutHandle(t *testing.T) {
	base := t.TempDir()
	s, err := NewTaskStorage(base, "t1")
	require.NoError(t, err)

	require.NoError(t, RemoveWorkspace(base, "t1"))
	_, err = os.Stat(s.Root())
	assert.True(t, os.IsNotExist(err))

	// Removing a workspace that never existed is not an error.
	require.NoError(t, RemoveWorkspace(base, "ghost"))
}

func TestFinalVideoPath(t *testing.T) {
	s, err := NewTaskStorage(t.TempDir(), "t1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "videos", "final.mp4"), s.FinalVideoPath())
}

func TestWorkspaceIsolation(t *testing.T) {
	base := t.TempDir()
	s1, err := NewTaskStorage(base, "t1")
	require.NoError(t, err)
	s2, err := NewTaskStorage(base, "t2")
	require.NoError(t, err)

	_, err = s1.Write(KindImage, "a.png", []byte("one"))
	require.NoError(t, err)

	require.NoError(t, s2.Remove())
	_, err = os.Stat(s1.Path(KindImage, "a.png"))
	assert.NoError(t, err)
}
