package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/audio"
)

var resampleOpts struct {
	dir     string
	rate    int
	workers int
}

var resampleCmd = &cobra.Command{
	Use:   "resample",
	Short: "resample every .wav under a directory in place",
	Long: `resample walks --dir, probes each .wav with ffprobe, and rewrites
files not already at --rate as 16-bit PCM. Each file is written to a
temp file first and atomically renamed over the original.`,
	RunE: resampleRun,
}

func resampleRun(cmd *cobra.Command, _ []string) error {
	resampler := audio.NewFFmpegResampler(cfg.FFmpegPath, cfg.FFprobePath)

	stats, err := audio.ResampleTree(cmd.Context(), resampler, resampleOpts.dir, resampleOpts.rate, audio.BatchOpts{
		Workers:     resampleOpts.workers,
		ProgressOut: os.Stderr,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "resampled %d, skipped %d, failed %d\n",
		stats.Processed, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d files failed to resample", stats.Failed)
	}
	return nil
}

func init() {
	f := resampleCmd.Flags()
	f.StringVar(&resampleOpts.dir, "dir", "", "directory tree of .wav files")
	f.IntVar(&resampleOpts.rate, "rate", 16000, "target sample rate in Hz")
	f.IntVar(&resampleOpts.workers, "workers", 0, "worker pool size (0 = one per CPU)")

	_ = resampleCmd.MarkFlagRequired("dir")
}
