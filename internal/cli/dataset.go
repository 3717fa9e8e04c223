package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/dataset"
)

var splitDatasetOpts struct {
	csvPath     string
	audioDir    string
	splitJSON   string
	seed        int64
	testRatio   float64
	expPerRange int
	copyMode    bool
}

var splitDatasetCmd = &cobra.Command{
	Use:   "split-dataset",
	Short: "partition singers into train/test/exp splits",
	Long: `split-dataset groups the CSV by singer_id and assigns each singer
to train, test, or exp so that all of a singer's songs land in one
split. Test singers are sampled from those with 2-5 songs; exp singers
per song-count range from the rest. Singer directories are moved under
<audio-dir>/<split>/, the CSV gains a split column, and the assignment
is recorded as JSON.`,
	RunE: splitDatasetRun,
}

func splitDatasetRun(_ *cobra.Command, _ []string) error {
	splitCfg := dataset.DefaultSplitConfig()
	splitCfg.Seed = splitDatasetOpts.seed
	splitCfg.TestRatio = splitDatasetOpts.testRatio
	splitCfg.ExpPerRange = splitDatasetOpts.expPerRange

	table, err := dataset.LoadTable(splitDatasetOpts.csvPath)
	if err != nil {
		return err
	}

	splits, err := dataset.AssignSplits(table, splitCfg)
	if err != nil {
		return err
	}
	if err := dataset.ApplySplitColumn(table, splits, splitCfg.SingerColumn); err != nil {
		return err
	}
	if err := table.Save(splitDatasetOpts.csvPath); err != nil {
		return err
	}

	stats, err := dataset.ApplySplitDirs(splitDatasetOpts.audioDir, splits, splitDatasetOpts.copyMode)
	if err != nil {
		return err
	}

	mapping := dataset.SingerMapping{}
	if err := dataset.WriteSplitJSON(splitDatasetOpts.splitJSON, table, splits, splitCfg, mapping); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "train %d, test %d, exp %d singers moved, %d skipped\n",
		stats.Moved[dataset.SplitTrain], stats.Moved[dataset.SplitTest],
		stats.Moved[dataset.SplitExp], stats.Skipped)
	return nil
}

func init() {
	defaults := dataset.DefaultSplitConfig()

	f := splitDatasetCmd.Flags()
	f.StringVar(&splitDatasetOpts.csvPath, "csv", "", "dataset CSV with a singer_id column")
	f.StringVar(&splitDatasetOpts.audioDir, "audio-dir", "", "root of the <singer>/<song> audio tree")
	f.StringVar(&splitDatasetOpts.splitJSON, "split-json", "split_by_singer.json", "assignment JSON output path")
	f.Int64Var(&splitDatasetOpts.seed, "seed", defaults.Seed, "RNG seed for reproducible splits")
	f.Float64Var(&splitDatasetOpts.testRatio, "test-ratio", defaults.TestRatio, "fraction of singers in the test split")
	f.IntVar(&splitDatasetOpts.expPerRange, "exp-per-range", defaults.ExpPerRange, "exp singers sampled per song-count range")
	f.BoolVar(&splitDatasetOpts.copyMode, "copy", false, "copy singer directories instead of moving them")

	_ = splitDatasetCmd.MarkFlagRequired("csv")
	_ = splitDatasetCmd.MarkFlagRequired("audio-dir")
}
