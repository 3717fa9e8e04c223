package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/dataset"
)

var hashNamesOpts struct {
	dir     string
	mapping string
}

var hashNamesCmd = &cobra.Command{
	Use:   "hash-names",
	Short: "rename song directories to the MD5 of their name",
	Long: `hash-names renames every second-level directory under --dir to the
MD5 hex digest of its name, appending _N on collision, and records the
original-to-new mapping as CSV. Scraped song titles can contain
characters that break downstream tooling; the hash gives a flat,
filesystem-safe namespace.`,
	RunE: hashNamesRun,
}

func hashNamesRun(_ *cobra.Command, _ []string) error {
	records, err := dataset.HashRenameSecondLevel(hashNamesOpts.dir)
	if err != nil {
		return err
	}
	if err := dataset.WriteRenameCSV(hashNamesOpts.mapping, records); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "renamed %d directories, mapping in %s\n", len(records), hashNamesOpts.mapping)
	return nil
}

func init() {
	f := hashNamesCmd.Flags()
	f.StringVar(&hashNamesOpts.dir, "dir", "", "root of the <singer>/<song> tree")
	f.StringVar(&hashNamesOpts.mapping, "mapping", "hashed_names.csv", "rename mapping CSV output path")

	_ = hashNamesCmd.MarkFlagRequired("dir")
}
