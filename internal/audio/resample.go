package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegResampler implements Resampler using ffmpeg and ffprobe.
type FFmpegResampler struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegResampler creates a new FFmpegResampler. Empty paths default
// to "ffmpeg" and "ffprobe" in PATH.
func NewFFmpegResampler(ffmpegPath, ffprobePath string) *FFmpegResampler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegResampler{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// SampleRate probes the first audio stream's sample rate in Hz.
func (r *FFmpegResampler) SampleRate(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w, stderr: %s", path, err, stderr.String())
	}

	rate, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		return 0, fmt.Errorf("parse sample rate of %s: %w", path, err)
	}
	return rate, nil
}

// Resample rewrites path at targetRate as 16-bit PCM. The output goes to
// a temp file in the same directory so the final rename is atomic on the
// same filesystem. Files already at targetRate are left untouched.
func (r *FFmpegResampler) Resample(ctx context.Context, path string, targetRate int) (bool, error) {
	current, err := r.SampleRate(ctx, path)
	if err != nil {
		return false, err
	}
	if current == targetRate {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".resample_*.wav")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-y",
		"-i", path,
		"-ar", strconv.Itoa(targetRate),
		"-acodec", "pcm_s16le",
		tmpPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("ffmpeg resample %s: %w, stderr: %s", path, err, stderr.String())
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("replace %s: %w", path, err)
	}

	return true, nil
}

// Verify interface implementation at compile time.
var _ Resampler = (*FFmpegResampler)(nil)
