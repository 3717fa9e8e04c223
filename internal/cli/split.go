package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/audio"
)

var splitOpts struct {
	dir         string
	minSilence  int
	threshDB    float64
	keepSilence int
	minSegment  int
	workers     int
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "split tracks into utterances at silence boundaries",
	Long: `split divides every .wav directly under --dir into voiced segments
separated by silence, written as <track>/<NNNNN>.wav. Tracks whose
output directory already exists are skipped, so interrupted runs can
simply be re-run.`,
	RunE: splitRun,
}

func splitRun(cmd *cobra.Command, _ []string) error {
	splitter := audio.NewFFmpegSplitter(cfg.FFmpegPath)
	opts := audio.SplitOpts{
		MinSilenceMs:    splitOpts.minSilence,
		SilenceThreshDB: splitOpts.threshDB,
		KeepSilenceMs:   splitOpts.keepSilence,
		MinSegmentMs:    splitOpts.minSegment,
	}

	stats, err := audio.SplitTree(cmd.Context(), splitter, splitOpts.dir, opts, audio.BatchOpts{
		Workers:     splitOpts.workers,
		ProgressOut: os.Stderr,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "split %d, skipped %d, failed %d\n",
		stats.Processed, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d files failed to split", stats.Failed)
	}
	return nil
}

func init() {
	defaults := audio.DefaultSplitOpts()

	f := splitCmd.Flags()
	f.StringVar(&splitOpts.dir, "dir", "", "directory of .wav tracks")
	f.IntVar(&splitOpts.minSilence, "min-silence", defaults.MinSilenceMs, "minimum silence length in ms")
	f.Float64Var(&splitOpts.threshDB, "silence-thresh", defaults.SilenceThreshDB, "silence threshold in dBFS")
	f.IntVar(&splitOpts.keepSilence, "keep-silence", defaults.KeepSilenceMs, "silence padding per segment edge in ms")
	f.IntVar(&splitOpts.minSegment, "min-segment", defaults.MinSegmentMs, "drop segments shorter than this many ms")
	f.IntVar(&splitOpts.workers, "workers", 0, "worker pool size (0 = one per CPU)")

	_ = splitCmd.MarkFlagRequired("dir")
}
