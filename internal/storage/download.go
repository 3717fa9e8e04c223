package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DownloadRequest names one object to fetch and the local file to write.
type DownloadRequest struct {
	Key  string
	Dest string
}

// DownloadResult is the per-file outcome of a batch download.
type DownloadResult struct {
	Key   string
	Dest  string
	Bytes int64
	Err   error
}

// DownloadStats summarizes a batch download.
type DownloadStats struct {
	Downloaded int
	Skipped    int // destination already present
	Failed     int
	Bytes      int64
}

// DownloadOpts configures DownloadBatch.
type DownloadOpts struct {
	// Workers is the pool size. Values below 1 default to NumCPU.
	Workers int
	// Overwrite re-fetches objects whose destination file already exists.
	Overwrite bool
	// ProgressOut receives the progress bar. Nil disables rendering.
	ProgressOut io.Writer
	Logger      *slog.Logger
}

// DownloadBatch fetches the requested objects with a bounded worker
// pool. Per-file failures are collected into the results, not fatal;
// only context cancellation aborts the run.
func DownloadBatch(ctx context.Context, store ObjectStore, reqs []DownloadRequest, opts DownloadOpts) (DownloadStats, []DownloadResult, error) {
	var stats DownloadStats
	if len(reqs) == 0 {
		return stats, nil, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if opts.ProgressOut != nil {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(opts.ProgressOut))
		bar = progress.AddBar(int64(len(reqs)),
			mpb.PrependDecorators(
				decor.Name("Downloading: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	jobs := make(chan DownloadRequest, len(reqs))
	resultCh := make(chan DownloadResult, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				if ctx.Err() != nil {
					resultCh <- DownloadResult{Key: req.Key, Dest: req.Dest, Err: ctx.Err()}
					continue
				}
				n, err := downloadOne(ctx, store, req, opts.Overwrite)
				resultCh <- DownloadResult{Key: req.Key, Dest: req.Dest, Bytes: n, Err: err}
			}
		}()
	}

	for _, req := range reqs {
		jobs <- req
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]DownloadResult, 0, len(reqs))
	for r := range resultCh {
		if bar != nil {
			bar.Increment()
		}
		switch {
		case errors.Is(r.Err, errAlreadyPresent):
			r.Err = nil
			stats.Skipped++
		case r.Err != nil:
			stats.Failed++
			logger.Warn("download failed",
				slog.String("key", r.Key),
				slog.String("error", r.Err.Error()),
			)
		default:
			stats.Downloaded++
			stats.Bytes += r.Bytes
		}
		results = append(results, r)
	}
	if progress != nil {
		progress.Wait()
	}

	if err := ctx.Err(); err != nil {
		return stats, results, err
	}
	logger.Info("download batch complete",
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int64("bytes", stats.Bytes),
	)
	return stats, results, nil
}

// errAlreadyPresent marks a request skipped because the destination file
// exists. Internal to the batch accounting.
var errAlreadyPresent = errors.New("destination already present")

func downloadOne(ctx context.Context, store ObjectStore, req DownloadRequest, overwrite bool) (int64, error) {
	if !overwrite {
		if _, err := os.Stat(req.Dest); err == nil {
			return 0, errAlreadyPresent
		}
	}
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(req.Dest), ".download_*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := store.Download(ctx, req.Key, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, req.Dest); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("finalize download: %w", err)
	}
	return n, nil
}
