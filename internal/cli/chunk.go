package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/chunker"
)

var chunkOpts struct {
	bucket    string
	srcPrefix string
	dstPrefix string
	chunks    int
	manifest  string
	dryRun    bool
	resume    bool
	limit     int
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "partition a bucket prefix into size-balanced chunks and copy them",
	Long: `chunk lists every object under --src-prefix, partitions them into
--chunks size-balanced groups, writes a JSONL manifest, and server-side
copies each object to --dst-prefix/chunk_<i>/. A per-chunk done-log makes
interrupted runs resumable with --resume.`,
	RunE: chunkRun,
}

func chunkRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := newStore(ctx, chunkOpts.bucket)
	if err != nil {
		return err
	}

	runner := chunker.NewRunner(store, logger, chunker.WithProgressOutput(os.Stderr))
	return runner.Run(ctx, chunker.Spec{
		SrcPrefix:    chunkOpts.srcPrefix,
		DstPrefix:    chunkOpts.dstPrefix,
		Chunks:       chunkOpts.chunks,
		ManifestPath: chunkOpts.manifest,
		DryRun:       chunkOpts.dryRun,
		Resume:       chunkOpts.resume,
		Limit:        chunkOpts.limit,
	})
}

func init() {
	f := chunkCmd.Flags()
	f.StringVar(&chunkOpts.bucket, "bucket", "", "bucket name (default $VOXPREP_BUCKET)")
	f.StringVar(&chunkOpts.srcPrefix, "src-prefix", "", "source prefix to chunk")
	f.StringVar(&chunkOpts.dstPrefix, "dst-prefix", "", "destination prefix for chunk_<i>/ trees")
	f.IntVar(&chunkOpts.chunks, "chunks", 10, "number of chunks")
	f.StringVar(&chunkOpts.manifest, "manifest", "chunk_manifest.jsonl", "manifest output path")
	f.BoolVar(&chunkOpts.dryRun, "dry-run", false, "plan and write the manifest without copying")
	f.BoolVar(&chunkOpts.resume, "resume", false, "skip objects recorded in the done-logs")
	f.IntVar(&chunkOpts.limit, "limit", 0, "cap the listing at N objects (0 = no cap)")

	_ = chunkCmd.MarkFlagRequired("src-prefix")
	_ = chunkCmd.MarkFlagRequired("dst-prefix")
}
