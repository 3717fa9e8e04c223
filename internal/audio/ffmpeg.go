package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
)

// FFmpegSplitter implements Splitter using the ffmpeg CLI.
type FFmpegSplitter struct {
	ffmpegPath string
}

// NewFFmpegSplitter creates a new FFmpegSplitter.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegSplitter(ffmpegPath string) *FFmpegSplitter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegSplitter{ffmpegPath: ffmpegPath}
}

// silenceInterval represents a detected silence interval in the audio.
type silenceInterval struct {
	start float64
	end   float64
}

// segment is a voiced interval to extract, in seconds.
type segment struct {
	start float64
	end   float64
}

// Split implements Splitter using ffmpeg silencedetect and segment
// extraction.
func (s *FFmpegSplitter) Split(ctx context.Context, inputWav, outputDir string, opts SplitOpts) ([]string, error) {
	if _, err := os.Stat(inputWav); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", inputWav)
	}

	duration, err := s.duration(ctx, inputWav)
	if err != nil {
		return nil, fmt.Errorf("get audio duration: %w", err)
	}

	silences, err := s.detectSilences(ctx, inputWav, opts)
	if err != nil {
		return nil, fmt.Errorf("detect silences: %w", err)
	}

	segments := voicedSegments(silences, duration, opts)
	if len(segments) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for i, seg := range segments {
		outputPath := filepath.Join(outputDir, fmt.Sprintf("%05d.wav", i+1))
		if err := s.extractSegment(ctx, inputWav, outputPath, seg.start, seg.end-seg.start); err != nil {
			for _, path := range written {
				_ = os.Remove(path)
			}
			return nil, fmt.Errorf("extract segment %d: %w", i+1, err)
		}
		written = append(written, outputPath)
	}

	return written, nil
}

// voicedSegments derives the voiced intervals as the complement of the
// silence intervals, padded by KeepSilenceMs at each edge and filtered to
// MinSegmentMs.
func voicedSegments(silences []silenceInterval, duration float64, opts SplitOpts) []segment {
	keep := float64(opts.KeepSilenceMs) / 1000.0
	minLen := float64(opts.MinSegmentMs) / 1000.0

	var segments []segment
	cursor := 0.0
	for _, silence := range silences {
		if silence.start > cursor {
			segments = append(segments, segment{start: cursor, end: silence.start})
		}
		cursor = silence.end
	}
	if cursor < duration {
		segments = append(segments, segment{start: cursor, end: duration})
	}

	var kept []segment
	for _, seg := range segments {
		if seg.end-seg.start < minLen {
			continue
		}
		start := seg.start - keep
		if start < 0 {
			start = 0
		}
		end := seg.end + keep
		if end > duration {
			end = duration
		}
		kept = append(kept, segment{start: start, end: end})
	}
	return kept
}

// duration returns the duration of an audio file in seconds, parsed from
// ffmpeg's stderr banner.
func (s *FFmpegSplitter) duration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-i", inputPath,
		"-hide_banner",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg exits non-zero with a null muxer; the banner still prints.
	_ = cmd.Run()

	return parseDuration(stderr.String())
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDuration extracts "Duration: HH:MM:SS.cc" from ffmpeg output.
func parseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", output)
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat(matches[4], 64)

	divisor := 1.0
	for range len(matches[4]) {
		divisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/divisor, nil
}

// detectSilences uses ffmpeg silencedetect to find silence intervals.
func (s *FFmpegSplitter) detectSilences(ctx context.Context, inputPath string, opts SplitOpts) ([]silenceInterval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%ddB:d=%g",
		int(opts.SilenceThreshDB),
		float64(opts.MinSilenceMs)/1000.0,
	)

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-i", inputPath,
		"-af", filter,
		"-f", "null",
		"-hide_banner",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	_ = cmd.Run()

	return parseSilenceOutput(stderr.String()), nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// parseSilenceOutput parses ffmpeg silencedetect stderr output.
func parseSilenceOutput(output string) []silenceInterval {
	var intervals []silenceInterval
	var currentStart float64
	hasStart := false

	for line := range linesOf(output) {
		if match := silenceStartRe.FindStringSubmatch(line); len(match) > 1 {
			if val, err := strconv.ParseFloat(match[1], 64); err == nil {
				currentStart = val
				hasStart = true
			}
		}
		if match := silenceEndRe.FindStringSubmatch(line); len(match) > 1 && hasStart {
			if val, err := strconv.ParseFloat(match[1], 64); err == nil {
				intervals = append(intervals, silenceInterval{start: currentStart, end: val})
				hasStart = false
			}
		}
	}

	return intervals
}

// linesOf iterates over the lines of s without allocating a slice.
func linesOf(s string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(s); i++ {
			if s[i] == '\n' {
				if !yield(s[start:i]) {
					return
				}
				start = i + 1
			}
		}
		if start < len(s) {
			yield(s[start:])
		}
	}
}

// extractSegment extracts a portion of audio to a new file.
func (s *FFmpegSplitter) extractSegment(ctx context.Context, inputPath, outputPath string, start, duration float64) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", inputPath,
		"-c", "copy",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// Verify interface implementation at compile time.
var _ Splitter = (*FFmpegSplitter)(nil)
