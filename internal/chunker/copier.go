package chunker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/voxprep/voxprep/internal/retry"
	"github.com/voxprep/voxprep/internal/storage"
)

// ErrInvalidSpec is returned when a chunk job spec fails validation.
var ErrInvalidSpec = errors.New("chunker: invalid spec")

// Spec describes one chunk-and-copy job.
type Spec struct {
	// SrcPrefix is the source prefix within the bucket.
	SrcPrefix string `validate:"required"`
	// DstPrefix is the destination prefix within the bucket.
	DstPrefix string `validate:"required"`
	// Chunks is the number of chunks to produce.
	Chunks int `validate:"gte=1"`
	// ManifestPath is where the JSONL copy plan is written. Done-logs
	// live in the same directory.
	ManifestPath string `validate:"required"`
	// DryRun stops after writing the manifest.
	DryRun bool
	// Resume skips destinations already present in per-chunk done-logs.
	Resume bool
	// Limit caps the number of objects listed; 0 means no cap.
	Limit int `validate:"gte=0"`
}

// Normalize ensures both prefixes end with a separator.
func (s *Spec) Normalize() {
	s.SrcPrefix = storage.NormalizePrefix(s.SrcPrefix)
	s.DstPrefix = storage.NormalizePrefix(s.DstPrefix)
}

// Validate rejects malformed specs before any I/O happens.
func (s *Spec) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSpec, err)
	}
	return nil
}

// Runner executes chunk jobs against an object store. Construct one at
// process start and reuse it; all state lives on the store and the
// filesystem.
type Runner struct {
	store       storage.ObjectStore
	logger      *slog.Logger
	policy      retry.Policy
	progressOut io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRetryPolicy overrides the per-object copy retry policy.
func WithRetryPolicy(p retry.Policy) RunnerOption {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithProgressOutput redirects progress bars; pass io.Discard to silence
// them in tests.
func WithProgressOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progressOut = w
	}
}

// NewRunner creates a Runner for the given store.
func NewRunner(store storage.ObjectStore, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		store:       store,
		logger:      logger,
		policy:      retry.DefaultPolicy(),
		progressOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run lists the source prefix, partitions it into spec.Chunks balanced
// chunks, writes the manifest, and (unless DryRun) copies every object to
// its destination. Returns ErrNoObjects when the prefix is empty.
func (r *Runner) Run(ctx context.Context, spec Spec) error {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return err
	}

	bucket := r.store.Bucket()
	r.logger.Info("listing source prefix",
		slog.String("uri", storage.URI(bucket, spec.SrcPrefix)),
	)

	objs, err := r.store.List(ctx, spec.SrcPrefix, spec.Limit)
	if err != nil {
		return fmt.Errorf("list source prefix: %w", err)
	}
	if len(objs) == 0 {
		return ErrNoObjects
	}

	total := TotalBytes(objs)
	r.logger.Info("listed objects",
		slog.Int("count", len(objs)),
		slog.String("total", HumanBytes(total)),
	)

	chunks, err := Partition(objs, spec.Chunks)
	if err != nil {
		return err
	}

	for _, chunk := range chunks {
		r.logger.Info("planned chunk",
			slog.String("chunk", chunk.Name()),
			slog.Int("objects", len(chunk.Objects)),
			slog.String("bytes", HumanBytes(chunk.Total)),
			slog.String("share", fmt.Sprintf("%.2f%%", float64(chunk.Total)/float64(total)*100)),
		)
	}

	if err := WriteManifest(spec.ManifestPath, bucket, spec.SrcPrefix, spec.DstPrefix, chunks); err != nil {
		return err
	}
	r.logger.Info("wrote manifest", slog.String("path", spec.ManifestPath))

	if spec.DryRun {
		r.logger.Info("dry-run enabled, not copying")
		return nil
	}

	for _, chunk := range chunks {
		if err := r.copyChunk(ctx, spec, chunk); err != nil {
			return err
		}
	}

	r.logger.Info("all chunks copied")
	return nil
}

// copyChunk copies one chunk's objects sequentially, recording each
// success in the chunk's done-log before moving on. A permanent per-object
// failure aborts the chunk.
func (r *Runner) copyChunk(ctx context.Context, spec Spec, chunk Chunk) error {
	name := chunk.Name()

	// More chunks than objects leaves some chunks empty. A zero-total
	// progress bar never reaches completion, so don't open one.
	if len(chunk.Objects) == 0 {
		r.logger.Info("empty chunk, nothing to copy", slog.String("chunk", name))
		return nil
	}

	donePath := filepath.Join(filepath.Dir(spec.ManifestPath), name+".done")

	if !spec.Resume {
		// A fresh run invalidates any earlier ledger for this chunk.
		if err := os.Remove(donePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset done-log %s: %w", donePath, err)
		}
	}

	done, err := OpenDoneLog(donePath)
	if err != nil {
		return err
	}
	defer func() { _ = done.Close() }()

	r.logger.Info("copying chunk",
		slog.String("chunk", name),
		slog.Int("objects", len(chunk.Objects)),
	)

	progress := mpb.New(mpb.WithOutput(r.progressOut), mpb.WithWidth(64))
	bar := progress.AddBar(int64(len(chunk.Objects)),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	for _, obj := range chunk.Objects {
		dstKey := DestinationKey(obj.Key, spec.SrcPrefix, spec.DstPrefix, name)

		if spec.Resume && done.Contains(dstKey) {
			bar.Increment()
			continue
		}

		err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
			return r.store.Copy(ctx, obj.Key, dstKey)
		})
		if err != nil {
			bar.Abort(true)
			progress.Wait()
			return fmt.Errorf("chunker: copy %s -> %s: %w",
				storage.URI(r.store.Bucket(), obj.Key),
				storage.URI(r.store.Bucket(), dstKey),
				err,
			)
		}

		if err := done.Append(dstKey); err != nil {
			bar.Abort(true)
			progress.Wait()
			return err
		}
		bar.Increment()
	}

	progress.Wait()
	r.logger.Info("completed chunk",
		slog.String("chunk", name),
		slog.String("done_log", donePath),
	)
	return nil
}
