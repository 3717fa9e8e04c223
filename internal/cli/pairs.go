package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/dataset"
)

var pairsOpts struct {
	dir     string
	csvPath string
	out     string
	seed    int64
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "emit verification trial pairs for the evaluation singers",
	Long: `pairs scans --dir for <singer>/<song>/*.wav utterances and writes
one positive trial per same-singer combination plus a matching
negative trial, as "label path1 path2" lines. With --csv, only singers
whose rows are in an evaluation split are included.`,
	RunE: pairsRun,
}

func pairsRun(_ *cobra.Command, _ []string) error {
	var singers map[string]bool
	if pairsOpts.csvPath != "" {
		table, err := dataset.LoadTable(pairsOpts.csvPath)
		if err != nil {
			return err
		}
		singers, err = dataset.EvalSingers(table, dataset.SingerIDColumn, dataset.SplitColumn)
		if err != nil {
			return err
		}
	}

	pairs, err := dataset.BuildPairs(pairsOpts.dir, singers, pairsOpts.seed)
	if err != nil {
		return err
	}
	if err := dataset.WritePairs(pairsOpts.out, pairs); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %d pairs to %s\n", len(pairs), pairsOpts.out)
	return nil
}

func init() {
	f := pairsCmd.Flags()
	f.StringVar(&pairsOpts.dir, "dir", "", "directory of <singer>/<song> utterances")
	f.StringVar(&pairsOpts.csvPath, "csv", "", "dataset CSV with singer_id and split columns (optional)")
	f.StringVar(&pairsOpts.out, "out", "pairs.txt", "pairs output path")
	f.Int64Var(&pairsOpts.seed, "seed", 42, "RNG seed for negative sampling")

	_ = pairsCmd.MarkFlagRequired("dir")
}
