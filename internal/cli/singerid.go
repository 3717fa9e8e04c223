package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/dataset"
)

var singerIDOpts struct {
	csvPath      string
	artistColumn string
	mappingPath  string
}

var singerIDCmd = &cobra.Command{
	Use:   "singer-id",
	Short: "assign synthetic singer identifiers to the dataset CSV",
	Long: `singer-id filters artist names that do not identify a single
singer, groups the rest case-insensitively, assigns id<NNNNN>
identifiers in sorted order, adds a singer_id column to the CSV, and
writes the id-to-artist mapping JSON.`,
	RunE: singerIDRun,
}

func singerIDRun(_ *cobra.Command, _ []string) error {
	table, err := dataset.LoadTable(singerIDOpts.csvPath)
	if err != nil {
		return err
	}

	mapping, err := dataset.AssignSingerIDs(table, singerIDOpts.artistColumn)
	if err != nil {
		return err
	}
	if err := mapping.Save(singerIDOpts.mappingPath); err != nil {
		return err
	}
	if err := table.Save(singerIDOpts.csvPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "assigned %d singer ids over %d rows\n", len(mapping), table.Len())
	return nil
}

func init() {
	f := singerIDCmd.Flags()
	f.StringVar(&singerIDOpts.csvPath, "csv", "", "dataset CSV to annotate")
	f.StringVar(&singerIDOpts.artistColumn, "artist-column", "Artist", "CSV column with raw artist names")
	f.StringVar(&singerIDOpts.mappingPath, "mapping", "singer_mapping.json", "mapping JSON output path")

	_ = singerIDCmd.MarkFlagRequired("csv")
}
