package composer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/storage"
)

// downloadTimeout bounds one remote media fetch.
const downloadTimeout = 60 * time.Second

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// resolveMedia turns a scene media reference into a local file path. Local
// paths pass through untouched; http(s) URLs are fetched into the task's
// temp directory first.
func (c *Composer) resolveMedia(ctx context.Context, ref, fallbackExt string) (string, error) {
	if !isRemote(ref) {
		return ref, nil
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", &errdefs.DownloadError{URL: ref, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", &errdefs.DownloadError{URL: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &errdefs.DownloadError{URL: ref, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errdefs.DownloadError{URL: ref, Err: err}
	}

	out := c.store.Path(storage.KindTemp, fmt.Sprintf("download_%s%s", shortID(), remoteExt(ref, fallbackExt)))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", &errdefs.StorageError{Op: "write", Path: out, Err: err}
	}
	return out, nil
}

func remoteExt(ref, fallback string) string {
	if idx := strings.IndexByte(ref, '?'); idx >= 0 {
		ref = ref[:idx]
	}
	if ext := path.Ext(ref); ext != "" {
		return ext
	}
	return fallback
}
