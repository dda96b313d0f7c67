// Package media wraps the ffmpeg/ffprobe toolchain behind small Go calls.
// Every invocation runs as a subprocess bounded by a context timeout.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// probeFallbackDuration is used when ffprobe cannot report a duration.
const probeFallbackDuration = 3.0

// stderrTailLimit caps how much subprocess stderr ends up in errors.
const stderrTailLimit = 2048

// Runner executes media toolchain commands.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// NewRunner creates a toolchain runner resolving ffmpeg and ffprobe from
// PATH. Timeout bounds each subprocess.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		timeout:     timeout,
	}
}

// RunFFmpeg runs ffmpeg with the given arguments. The -y flag is always
// prepended so re-renders overwrite stale outputs.
func (r *Runner) RunFFmpeg(ctx context.Context, args ...string) error {
	return r.run(ctx, r.ffmpegPath, append([]string{"-y"}, args...))
}

func (r *Runner) run(ctx context.Context, bin string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", bin, r.timeout)
		}
		return fmt.Errorf("%s failed: %w: %s", bin, err, tail(stderr.Bytes()))
	}
	slog.Debug("Media command completed", "bin", bin, "elapsed", time.Since(start))
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the container duration of a media file in seconds.
// When ffprobe succeeds but reports no usable duration, a conservative
// fallback is returned instead of an error so composition can continue.
func (r *Runner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return probeFallbackDuration, nil
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || d <= 0 {
		return probeFallbackDuration, nil
	}
	return d, nil
}

// CreateSilentAudio writes a silent stereo track of the given length. Used
// for scenes with no speech and as a substitute for missing audio inputs.
func (r *Runner) CreateSilentAudio(ctx context.Context, path string, duration float64) error {
	return r.RunFFmpeg(ctx,
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", formatSeconds(duration),
		path)
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

func tail(b []byte) []byte {
	if len(b) > stderrTailLimit {
		return b[len(b)-stderrTailLimit:]
	}
	return b
}
