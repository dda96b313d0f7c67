package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/progress"
	"github.com/IsPHao/storyreel/pkg/queue"
	"github.com/IsPHao/storyreel/pkg/tasks"
)

// noopExecutor records submitted tasks without running a pipeline.
type noopExecutor struct {
	mu  sync.Mutex
	ran []string
}

func (e *noopExecutor) Run(_ context.Context, taskID, _ string, _ models.ParseMode, _ models.ParseOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ran = append(e.ran, taskID)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BasePath = t.TempDir()
	cfg.Queue.GracefulShutdownTimeout = time.Second

	registry := tasks.NewRegistry()
	bus := progress.NewBus()
	pool := queue.NewWorkerPool(cfg.Queue, &noopExecutor{})
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	return NewServer(cfg, registry, bus, pool)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, func(handler func(c *echo.Context) error) error) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return rec, func(handler func(c *echo.Context) error) error { return handler(c) }
}

func TestUploadNovelAccepted(t *testing.T) {
	s := newTestServer(t)
	body := `{"novel_text":"` + strings.Repeat("a", 200) + `","mode":"simple"}`
	rec, run := doJSON(t, s, http.MethodPost, "/api/v1/novels/upload", body)

	require.NoError(t, run(s.uploadNovelHandler))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp UploadNovelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "processing", resp.Status)
	assert.False(t, resp.CreatedAt.IsZero())

	// The task is registered and pending/running.
	taskRec, ok := s.registry.Get(resp.TaskID)
	require.True(t, ok)
	assert.NotEqual(t, models.TaskStatusFailed, taskRec.Status)
}

func TestUploadNovelLengthValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		text string
	}{
		{"too short by one rune", strings.Repeat("字", 99)},
		{"too long by one rune", strings.Repeat("a", 100001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"novel_text":"` + tt.text + `","mode":"simple"}`
			_, run := doJSON(t, s, http.MethodPost, "/api/v1/novels/upload", body)

			err := run(s.uploadNovelHandler)
			require.Error(t, err)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
		})
	}

	t.Run("exactly at bounds is accepted", func(t *testing.T) {
		for _, text := range []string{strings.Repeat("字", 100), strings.Repeat("a", 100000)} {
			body := `{"novel_text":"` + text + `","mode":"simple"}`
			rec, run := doJSON(t, s, http.MethodPost, "/api/v1/novels/upload", body)
			require.NoError(t, run(s.uploadNovelHandler))
			assert.Equal(t, http.StatusAccepted, rec.Code)
		}
	})
}

func TestUploadNovelInvalidMode(t *testing.T) {
	s := newTestServer(t)
	body := `{"novel_text":"` + strings.Repeat("a", 200) + `","mode":"fancy"}`
	_, run := doJSON(t, s, http.MethodPost, "/api/v1/novels/upload", body)

	err := run(s.uploadNovelHandler)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
}

func TestUploadNovelDefaultsToEnhanced(t *testing.T) {
	s := newTestServer(t)
	body := `{"novel_text":"` + strings.Repeat("a", 200) + `"}`
	rec, run := doJSON(t, s, http.MethodPost, "/api/v1/novels/upload", body)

	require.NoError(t, run(s.uploadNovelHandler))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// serve routes a request through the full echo router so path parameters
// resolve as in production.
func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestProgressUnknownTask(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, http.MethodGet, "/api/v1/novels/nope/progress")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressMergesRegistryAndBus(t *testing.T) {
	s := newTestServer(t)
	s.registry.Create("t1")
	s.registry.MarkRunning("t1")
	s.bus.Publish(models.ProgressRecord{
		TaskID:   "t1",
		Type:     models.ProgressTypeProgress,
		Status:   models.TaskStatusRunning,
		Stage:    "rendering",
		Progress: 55,
		Message:  "Rendering scene media",
	})

	rec := serve(s, http.MethodGet, "/api/v1/novels/t1/progress")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TaskStatusRunning, resp.Status)
	assert.Equal(t, "rendering", resp.Stage)
	assert.Equal(t, 55, resp.Progress)
}

func TestProgressCompletedTaskCarriesResult(t *testing.T) {
	s := newTestServer(t)
	s.registry.Create("t1")
	s.registry.MarkCompleted("t1", &models.PipelineResult{VideoPath: "/v/final.mp4", Duration: 10})

	rec := serve(s, http.MethodGet, "/api/v1/novels/t1/progress")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TaskStatusCompleted, resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "/v/final.mp4", resp.Result.VideoPath)
}

func TestCancelUnknownTask(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, http.MethodPost, "/api/v1/novels/nope/cancel")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelTerminalTaskConflicts(t *testing.T) {
	s := newTestServer(t)
	s.registry.Create("t1")
	s.registry.MarkCompleted("t1", &models.PipelineResult{})

	rec := serve(s, http.MethodPost, "/api/v1/novels/t1/cancel")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelQueuedTaskMarksCancelled(t *testing.T) {
	s := newTestServer(t)
	s.registry.Create("t1")

	rec := serve(s, http.MethodPost, "/api/v1/novels/t1/cancel")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	taskRec, _ := s.registry.Get("t1")
	assert.Equal(t, models.TaskStatusCancelled, taskRec.Status)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.healthHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Pool.IsHealthy)
}
