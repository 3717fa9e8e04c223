package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/audio"
	"github.com/voxprep/voxprep/internal/pipeline"
)

var pipelineOpts struct {
	datasetDir   string
	csvPath      string
	artistColumn string
	rate         int
	seed         int64
	workers      int
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "run the full preparation chain over a dataset",
	Long: `pipeline runs resample, split, singer-id, split-dataset, and pairs
in order over one dataset directory, stopping at the first failure and
logging per-stage timing under a generated run ID.`,
	RunE: pipelineRun,
}

func pipelineRun(cmd *cobra.Command, _ []string) error {
	csvPath := pipelineOpts.csvPath
	if csvPath == "" {
		csvPath = filepath.Join(pipelineOpts.datasetDir, "dataset.csv")
	}

	workers := pipelineOpts.workers
	if workers < 1 {
		workers = cfg.NumWorkers()
	}

	st := &pipeline.State{
		DatasetDir:   pipelineOpts.datasetDir,
		CSVPath:      csvPath,
		ArtistColumn: pipelineOpts.artistColumn,
		TargetRate:   pipelineOpts.rate,
		Workers:      workers,
		Seed:         pipelineOpts.seed,
		ProgressOut:  os.Stderr,
		Logger:       logger,
	}

	resampler := audio.NewFFmpegResampler(cfg.FFmpegPath, cfg.FFprobePath)
	splitter := audio.NewFFmpegSplitter(cfg.FFmpegPath)
	runner := pipeline.NewRunner(pipeline.Prepare(resampler, splitter, audio.DefaultSplitOpts())...)

	if err := runner.Run(cmd.Context(), st); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "pipeline %s complete\n", st.RunID)
	return nil
}

func init() {
	f := pipelineCmd.Flags()
	f.StringVar(&pipelineOpts.datasetDir, "dataset-dir", "", "dataset root holding audio/ and the CSV")
	f.StringVar(&pipelineOpts.csvPath, "csv", "", "dataset CSV (default <dataset-dir>/dataset.csv)")
	f.StringVar(&pipelineOpts.artistColumn, "artist-column", "Artist", "CSV column with raw artist names")
	f.IntVar(&pipelineOpts.rate, "rate", 16000, "target sample rate in Hz")
	f.Int64Var(&pipelineOpts.seed, "seed", 42, "RNG seed for splits and pairs")
	f.IntVar(&pipelineOpts.workers, "workers", 0, "worker pool size (0 = $VOXPREP_WORKERS)")

	_ = pipelineCmd.MarkFlagRequired("dataset-dir")
}
