package chunker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxprep/voxprep/internal/retry"
	"github.com/voxprep/voxprep/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func seedStore(t *testing.T, sizes map[string]int64) *storage.MemStore {
	t.Helper()
	store := storage.NewMemStore("bkt")
	for key, size := range sizes {
		store.PutSized(key, size)
	}
	return store
}

func newTestRunner(store storage.ObjectStore, opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{
		WithProgressOutput(io.Discard),
		WithRetryPolicy(fastRetry(8)),
	}, opts...)
	return NewRunner(store, testLogger(), opts...)
}

func testSpec(t *testing.T, chunks int) Spec {
	t.Helper()
	return Spec{
		SrcPrefix:    "stems/",
		DstPrefix:    "stem_chunks/",
		Chunks:       chunks,
		ManifestPath: filepath.Join(t.TempDir(), "chunk_manifest.jsonl"),
	}
}

func TestRun_InvalidSpec(t *testing.T) {
	runner := newTestRunner(storage.NewMemStore("bkt"))

	t.Run("zero chunks", func(t *testing.T) {
		spec := testSpec(t, 0)
		err := runner.Run(context.Background(), spec)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})

	t.Run("missing prefixes", func(t *testing.T) {
		spec := testSpec(t, 2)
		spec.SrcPrefix = ""
		err := runner.Run(context.Background(), spec)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})
}

func TestRun_EmptySource(t *testing.T) {
	runner := newTestRunner(storage.NewMemStore("bkt"))
	err := runner.Run(context.Background(), testSpec(t, 3))
	assert.ErrorIs(t, err, ErrNoObjects)
}

func TestRun_DryRunWritesManifestOnly(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 100,
		"stems/b.wav": 90,
		"stems/c.wav": 10,
	})
	runner := newTestRunner(store)
	spec := testSpec(t, 2)
	spec.DryRun = true

	require.NoError(t, runner.Run(context.Background(), spec))

	entries, err := ReadManifest(spec.ManifestPath)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Empty(t, store.CopyLog(), "dry run must not copy")
}

func TestRun_ManifestMatchesPartition(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/x/a.wav": 40,
		"stems/x/b.wav": 30,
		"stems/y/c.wav": 20,
		"stems/y/d.wav": 10,
	})
	runner := newTestRunner(store)
	spec := testSpec(t, 2)
	spec.DryRun = true

	require.NoError(t, runner.Run(context.Background(), spec))

	entries, err := ReadManifest(spec.ManifestPath)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	bySrc := make(map[string]ManifestEntry)
	for _, entry := range entries {
		bySrc[entry.Src] = entry
	}
	require.Len(t, bySrc, 4, "exactly one entry per object")

	entry := bySrc["gs://bkt/stems/x/a.wav"]
	assert.Equal(t, "chunk_1", entry.Chunk)
	assert.Equal(t, "gs://bkt/stem_chunks/chunk_1/x/a.wav", entry.Dst)
	assert.Equal(t, int64(40), entry.Size)
}

func TestRun_CopiesEverything(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 100,
		"stems/b.wav": 90,
		"stems/c.wav": 10,
		"stems/d.wav": 10,
	})
	runner := newTestRunner(store)
	spec := testSpec(t, 2)

	require.NoError(t, runner.Run(context.Background(), spec))

	assert.Len(t, store.CopyLog(), 4)
	assert.True(t, store.Has("stem_chunks/chunk_1/a.wav"))
	assert.True(t, store.Has("stem_chunks/chunk_2/b.wav"))

	for _, name := range []string{"chunk_1.done", "chunk_2.done"} {
		done, err := OpenDoneLog(filepath.Join(filepath.Dir(spec.ManifestPath), name))
		require.NoError(t, err)
		assert.Positive(t, done.Len(), "%s should have entries", name)
		_ = done.Close()
	}
}

func TestRun_MoreChunksThanObjects(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 100,
		"stems/b.wav": 90,
	})
	runner := newTestRunner(store)
	spec := testSpec(t, 5)

	// Empty chunks must not stall the copy loop; fail fast instead of
	// letting the suite hang if they do.
	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Run(context.Background(), spec)
	}()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return with more chunks than objects")
	}

	assert.Len(t, store.CopyLog(), 2)
	assert.True(t, store.Has("stem_chunks/chunk_1/a.wav"))
	assert.True(t, store.Has("stem_chunks/chunk_2/b.wav"))

	// Only populated chunks leave a done-log behind.
	doneDir := filepath.Dir(spec.ManifestPath)
	for _, name := range []string{"chunk_1.done", "chunk_2.done"} {
		assert.FileExists(t, filepath.Join(doneDir, name))
	}
	for _, name := range []string{"chunk_3.done", "chunk_4.done", "chunk_5.done"} {
		assert.NoFileExists(t, filepath.Join(doneDir, name))
	}
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 10,
	})
	store.FailCopies["stems/a.wav"] = 2

	runner := newTestRunner(store)
	spec := testSpec(t, 1)

	require.NoError(t, runner.Run(context.Background(), spec))
	assert.True(t, store.Has("stem_chunks/chunk_1/a.wav"))
}

func TestRun_FatalAfterExhaustedRetries(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 10,
	})
	store.FailCopies["stems/a.wav"] = 100

	runner := newTestRunner(store, WithRetryPolicy(fastRetry(3)))
	spec := testSpec(t, 1)

	err := runner.Run(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gs://bkt/stems/a.wav")
	assert.Contains(t, err.Error(), "gs://bkt/stem_chunks/chunk_1/a.wav")
}

func TestRun_ResumeSkipsDoneObjects(t *testing.T) {
	sizes := map[string]int64{
		"stems/a.wav": 100,
		"stems/b.wav": 90,
		"stems/c.wav": 10,
	}
	store := seedStore(t, sizes)
	runner := newTestRunner(store)
	spec := testSpec(t, 2)

	require.NoError(t, runner.Run(context.Background(), spec))
	firstCopies := len(store.CopyLog())
	require.Equal(t, 3, firstCopies)

	// A completed first run plus --resume means zero redundant copies.
	spec.Resume = true
	require.NoError(t, runner.Run(context.Background(), spec))
	assert.Equal(t, firstCopies, len(store.CopyLog()))
}

func TestRun_ResumeAfterPartialFailure(t *testing.T) {
	store := seedStore(t, map[string]int64{
		"stems/a.wav": 100,
		"stems/b.wav": 90,
		"stems/c.wav": 10,
		"stems/d.wav": 10,
	})
	// b permanently fails on the first run, aborting its chunk.
	store.FailCopies["stems/b.wav"] = 100

	runner := newTestRunner(store, WithRetryPolicy(fastRetry(2)))
	spec := testSpec(t, 2)

	err := runner.Run(context.Background(), spec)
	require.Error(t, err)

	doneDir := filepath.Dir(spec.ManifestPath)
	firstRunDone := readDoneEntries(t, doneDir)

	// Operator clears the failure and re-runs with --resume.
	store.FailCopies["stems/b.wav"] = 0
	spec.Resume = true
	require.NoError(t, runner.Run(context.Background(), spec))

	secondRunDone := readDoneEntries(t, doneDir)
	for entry := range firstRunDone {
		assert.Contains(t, secondRunDone, entry, "resume must preserve prior done entries")
	}
	assert.Len(t, secondRunDone, 4)
	assert.True(t, store.Has("stem_chunks/chunk_2/b.wav"))
}

// readDoneEntries collects all done-log destinations under dir, asserting
// no file records a destination twice.
func readDoneEntries(t *testing.T, dir string) map[string]struct{} {
	t.Helper()
	entries := make(map[string]struct{})

	matches, err := filepath.Glob(filepath.Join(dir, "chunk_*.done"))
	require.NoError(t, err)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		seen := make(map[string]struct{})
		for _, line := range splitLines(string(data)) {
			_, dup := seen[line]
			assert.False(t, dup, "duplicate done entry %q in %s", line, path)
			seen[line] = struct{}{}
			entries[line] = struct{}{}
		}
	}
	return entries
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func TestDoneLog_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_1.done")

	done, err := OpenDoneLog(path)
	require.NoError(t, err)
	require.NoError(t, done.Append("stem_chunks/chunk_1/a.wav"))
	require.NoError(t, done.Append("stem_chunks/chunk_1/b.wav"))
	// Idempotent append.
	require.NoError(t, done.Append("stem_chunks/chunk_1/a.wav"))
	assert.Equal(t, 2, done.Len())
	require.NoError(t, done.Close())

	reloaded, err := OpenDoneLog(path)
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Contains("stem_chunks/chunk_1/a.wav"))
	assert.False(t, reloaded.Contains("stem_chunks/chunk_1/c.wav"))
}
