package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/dataset"
	"github.com/voxprep/voxprep/internal/storage"
)

var downloadOpts struct {
	bucket    string
	csvPath   string
	urlColumn string
	outDir    string
	workers   int
	overwrite bool
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "fetch the objects listed in a CSV column",
	Long: `download reads --csv, takes the storage URI from --url-column of
every row, and fetches each object into --out with a bounded worker
pool. Existing files are skipped unless --overwrite is set; per-file
failures are reported at the end, not fatal.`,
	RunE: downloadRun,
}

func downloadRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	table, err := dataset.LoadTable(downloadOpts.csvPath)
	if err != nil {
		return err
	}
	urlCol, err := table.ColumnIndex(downloadOpts.urlColumn)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, downloadOpts.bucket)
	if err != nil {
		return err
	}

	var reqs []storage.DownloadRequest
	for row := range table.Rows {
		uri := table.Get(row, urlCol)
		if uri == "" {
			continue
		}
		bucket, key, err := storage.ParseURI(uri)
		if err != nil {
			return fmt.Errorf("row %d: %w", row+1, err)
		}
		if bucket != store.Bucket() {
			return fmt.Errorf("row %d: bucket %s does not match %s", row+1, bucket, store.Bucket())
		}
		reqs = append(reqs, storage.DownloadRequest{
			Key:  key,
			Dest: filepath.Join(downloadOpts.outDir, path.Base(key)),
		})
	}

	stats, results, err := storage.DownloadBatch(ctx, store, reqs, storage.DownloadOpts{
		Workers:     downloadOpts.workers,
		Overwrite:   downloadOpts.overwrite,
		ProgressOut: os.Stderr,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stdout, "FAILED %s: %v\n", r.Key, r.Err)
		}
	}
	fmt.Fprintf(os.Stdout, "downloaded %d, skipped %d, failed %d (%d bytes)\n",
		stats.Downloaded, stats.Skipped, stats.Failed, stats.Bytes)

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", stats.Failed, len(reqs))
	}
	return nil
}

func init() {
	f := downloadCmd.Flags()
	f.StringVar(&downloadOpts.bucket, "bucket", "", "bucket name (default $VOXPREP_BUCKET)")
	f.StringVar(&downloadOpts.csvPath, "csv", "", "CSV file listing the objects")
	f.StringVar(&downloadOpts.urlColumn, "url-column", "url", "CSV column holding storage URIs")
	f.StringVar(&downloadOpts.outDir, "out", ".", "destination directory")
	f.IntVar(&downloadOpts.workers, "workers", 0, "worker pool size (0 = one per CPU)")
	f.BoolVar(&downloadOpts.overwrite, "overwrite", false, "re-fetch files that already exist")

	_ = downloadCmd.MarkFlagRequired("csv")
}
