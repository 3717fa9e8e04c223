// Package cli wires the voxprep subcommands. Process-wide settings come
// from the environment (internal/config); per-command parameters are
// flags on each subcommand.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/storage"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd is the root of all commands.
var rootCmd = &cobra.Command{
	Use:   "voxprep [command] [flags]",
	Short: "singing-voice dataset preparation toolkit",
	Long: `voxprep prepares large singing-voice corpora for speaker
verification training: cloud-storage chunking and transfer, silence
splitting, resampling, singer identity assignment, dataset splits and
verification trial pairs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the command tree with the given process configuration.
func Execute(ctx context.Context, c *config.Config, l *slog.Logger) error {
	cfg = c
	logger = l
	return rootCmd.ExecuteContext(ctx)
}

// newStore builds the S3 client for the configured or overridden bucket.
func newStore(ctx context.Context, bucket string) (*storage.S3Store, error) {
	if bucket == "" {
		bucket = cfg.Bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("no bucket: set --bucket or VOXPREP_BUCKET")
	}
	return storage.NewS3Store(ctx, storage.S3Config{
		Bucket:          bucket,
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.AWSEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(resampleCmd)
	rootCmd.AddCommand(singerIDCmd)
	rootCmd.AddCommand(splitDatasetCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(hashNamesCmd)
	rootCmd.AddCommand(pipelineCmd)
}
