// Package audio provides ffmpeg-backed audio processing: silence-based
// utterance splitting and batch resampling.
package audio

import "context"

// SplitOpts configures silence-based splitting.
type SplitOpts struct {
	// MinSilenceMs is the minimum silence duration in milliseconds for a
	// gap to count as a split boundary.
	// Default: 2000 milliseconds.
	MinSilenceMs int

	// SilenceThreshDB is the volume threshold in dBFS below which audio
	// is considered silence.
	// Default: -40 dBFS.
	SilenceThreshDB float64

	// KeepSilenceMs is how much silence to leave at each segment edge,
	// in milliseconds.
	// Default: 100 milliseconds.
	KeepSilenceMs int

	// MinSegmentMs drops segments shorter than this many milliseconds.
	// Default: 3000 milliseconds.
	MinSegmentMs int
}

// DefaultSplitOpts returns the default options for silence splitting.
func DefaultSplitOpts() SplitOpts {
	return SplitOpts{
		MinSilenceMs:    2000,
		SilenceThreshDB: -40,
		KeepSilenceMs:   100,
		MinSegmentMs:    3000,
	}
}

// Splitter splits an audio file into voiced segments at silence
// boundaries.
type Splitter interface {
	// Split divides inputWav into utterances separated by silence and
	// writes them to outputDir as 00001.wav, 00002.wav, …
	//
	// Returns the paths of the written segments. A file with no
	// qualifying segment yields an empty slice and no error.
	Split(ctx context.Context, inputWav, outputDir string, opts SplitOpts) ([]string, error)
}

// Resampler converts audio files to a target sample rate in place.
type Resampler interface {
	// SampleRate probes the file's current sample rate in Hz.
	SampleRate(ctx context.Context, path string) (int, error)

	// Resample rewrites path at targetRate as 16-bit PCM, atomically
	// replacing the original. Returns true if the file was rewritten,
	// false if it was already at targetRate.
	Resample(ctx context.Context, path string, targetRate int) (bool, error)
}
