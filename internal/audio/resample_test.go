package audio

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkFFprobe(t *testing.T) {
	t.Helper()
	checkFFmpeg(t)
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

func makeToneWAV(t *testing.T, path string, rate int) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-ar", "48000", "-ac", "1",
		path,
	)
	if rate != 48000 {
		cmd = exec.Command("ffmpeg", "-y",
			"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
			"-ar", "16000", "-ac", "1",
			path,
		)
	}
	require.NoError(t, cmd.Run())
}

func TestResample_SkipsFilesAtTargetRate(t *testing.T) {
	checkFFprobe(t)

	path := filepath.Join(t.TempDir(), "a.wav")
	makeToneWAV(t, path, 16000)

	resampler := NewFFmpegResampler("", "")
	changed, err := resampler.Resample(context.Background(), path, 16000)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestResample_ConvertsInPlace(t *testing.T) {
	checkFFprobe(t)

	path := filepath.Join(t.TempDir(), "a.wav")
	makeToneWAV(t, path, 48000)

	resampler := NewFFmpegResampler("", "")
	changed, err := resampler.Resample(context.Background(), path, 16000)
	require.NoError(t, err)
	assert.True(t, changed)

	rate, err := resampler.SampleRate(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
}

func TestSampleRate_MissingFile(t *testing.T) {
	checkFFprobe(t)

	resampler := NewFFmpegResampler("", "")
	_, err := resampler.SampleRate(context.Background(), "/nonexistent/a.wav")
	require.Error(t, err)
}
