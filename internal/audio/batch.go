package audio

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// BatchStats summarizes a batch run over a file tree.
type BatchStats struct {
	Processed int // files changed (resampled, or split into segments)
	Skipped   int // files left alone
	Failed    int // files that errored
}

// BatchOpts configures the worker pool shared by the batch operations.
type BatchOpts struct {
	// Workers is the pool size. Values below 1 default to NumCPU.
	Workers int
	// ProgressOut receives the progress bar. Nil disables rendering.
	ProgressOut io.Writer
	Logger      *slog.Logger
}

func (o BatchOpts) workers() int {
	if o.Workers >= 1 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o BatchOpts) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ResampleTree resamples every .wav under root to targetRate in place,
// skipping files already at the target. Individual failures are logged
// and counted, not fatal; context cancellation aborts the run.
func ResampleTree(ctx context.Context, r Resampler, root string, targetRate int, opts BatchOpts) (BatchStats, error) {
	files, err := collectFiles(root, ".wav")
	if err != nil {
		return BatchStats{}, err
	}
	logger := opts.logger()
	logger.Info("resampling tree",
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.Int("target_rate", targetRate),
	)

	return runBatch(ctx, files, "Resampling: ", opts, func(ctx context.Context, path string) (bool, error) {
		changed, err := r.Resample(ctx, path, targetRate)
		if err != nil {
			return false, err
		}
		return changed, nil
	})
}

// SplitTree splits every .wav directly under audioDir into
// audioDir/<track>/<NNNNN>.wav utterances. Tracks whose output directory
// already exists are skipped so interrupted runs can be re-run. Files
// producing no qualifying segment leave no directory behind.
func SplitTree(ctx context.Context, s Splitter, audioDir string, splitOpts SplitOpts, opts BatchOpts) (BatchStats, error) {
	entries, err := os.ReadDir(audioDir)
	if err != nil {
		return BatchStats{}, fmt.Errorf("read audio directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			files = append(files, filepath.Join(audioDir, e.Name()))
		}
	}
	sort.Strings(files)

	logger := opts.logger()
	logger.Info("splitting on silence",
		slog.String("dir", audioDir),
		slog.Int("files", len(files)),
		slog.Int("min_silence_ms", splitOpts.MinSilenceMs),
	)

	return runBatch(ctx, files, "Splitting: ", opts, func(ctx context.Context, path string) (bool, error) {
		outDir := strings.TrimSuffix(path, filepath.Ext(path))
		if _, err := os.Stat(outDir); err == nil {
			return false, nil
		}
		segments, err := s.Split(ctx, path, outDir, splitOpts)
		if err != nil {
			return false, err
		}
		if len(segments) == 0 {
			// os.Remove only succeeds on an empty directory.
			_ = os.Remove(outDir)
			return false, nil
		}
		return true, nil
	})
}

// runBatch fans files out to a worker pool. The op reports whether the
// file was changed; errors are counted per file and logged.
func runBatch(ctx context.Context, files []string, barName string, opts BatchOpts, op func(context.Context, string) (bool, error)) (BatchStats, error) {
	var stats BatchStats
	if len(files) == 0 {
		return stats, nil
	}

	logger := opts.logger()

	var progress *mpb.Progress
	var bar *mpb.Bar
	if opts.ProgressOut != nil {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(opts.ProgressOut))
		bar = progress.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name(barName),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	type result struct {
		path    string
		changed bool
		err     error
	}

	jobs := make(chan string, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < opts.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					results <- result{path: path, err: ctx.Err()}
					continue
				}
				changed, err := op(ctx, path)
				results <- result{path: path, changed: changed, err: err}
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if bar != nil {
			bar.Increment()
		}
		switch {
		case r.err != nil:
			stats.Failed++
			logger.Warn("batch file failed",
				slog.String("file", r.path),
				slog.String("error", r.err.Error()),
			)
		case r.changed:
			stats.Processed++
		default:
			stats.Skipped++
		}
	}
	if progress != nil {
		progress.Wait()
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	logger.Info("batch complete",
		slog.Int("processed", stats.Processed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// collectFiles walks root gathering files with the given extension, in
// sorted order.
func collectFiles(root, ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
