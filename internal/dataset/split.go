package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// SplitColumn is the CSV column written by ApplySplitColumn.
const SplitColumn = "split"

// Split labels.
const (
	SplitTrain = "train"
	SplitTest  = "test"
	SplitExp   = "exp"
)

// SplitConfig controls the train/test/exp partition of singers.
type SplitConfig struct {
	// SingerColumn names the CSV column holding singer IDs.
	SingerColumn string
	// Seed feeds the RNG so the split is reproducible.
	Seed int64
	// TestRatio is the fraction of singers assigned to the test split.
	TestRatio float64
	// ExpPerRange is how many singers to sample per song-count range for
	// the exp split.
	ExpPerRange int
}

// DefaultSplitConfig returns the standard split parameters.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		SingerColumn: SingerIDColumn,
		Seed:         42,
		TestRatio:    0.1,
		ExpPerRange:  10,
	}
}

// songCountRanges are the exp-set sampling strata: singers with 1 song,
// 2-5, 5-10, 10-30, 30-100, and 100+ songs (bounds inclusive).
var songCountRanges = [][2]int{
	{1, 1},
	{2, 5},
	{5, 10},
	{10, 30},
	{30, 100},
	{100, math.MaxInt},
}

// AssignSplits partitions singers into train/test/exp so that all songs
// of one singer land in one split. Test singers are sampled from those
// with 2-5 songs; exp singers are sampled per song-count range from the
// rest; everything else is train. Rows with an empty singer ID stay in
// train. The result is deterministic for a given table and seed.
func AssignSplits(t *Table, cfg SplitConfig) (map[string]string, error) {
	singerCol, err := t.ColumnIndex(cfg.SingerColumn)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for row := range t.Rows {
		if id := t.Get(row, singerCol); id != "" {
			counts[id]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("dataset: no singer IDs in column %q", cfg.SingerColumn)
	}

	// Iterate singers in sorted order so the seeded shuffle is stable.
	singers := make([]string, 0, len(counts))
	for id := range counts {
		singers = append(singers, id)
	}
	sort.Strings(singers)

	rng := rand.New(rand.NewSource(cfg.Seed))

	numTest := int(float64(len(singers)) * cfg.TestRatio)
	if numTest < 1 {
		numTest = 1
	}

	var testPool []string
	for _, id := range singers {
		if counts[id] >= 2 && counts[id] <= 5 {
			testPool = append(testPool, id)
		}
	}
	rng.Shuffle(len(testPool), func(i, j int) {
		testPool[i], testPool[j] = testPool[j], testPool[i]
	})
	if numTest > len(testPool) {
		numTest = len(testPool)
	}

	splits := make(map[string]string, len(singers))
	for _, id := range singers {
		splits[id] = SplitTrain
	}
	for _, id := range testPool[:numTest] {
		splits[id] = SplitTest
	}

	for _, bounds := range songCountRanges {
		var pool []string
		for _, id := range singers {
			if splits[id] != SplitTrain {
				continue
			}
			if counts[id] >= bounds[0] && counts[id] <= bounds[1] {
				pool = append(pool, id)
			}
		}
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		n := cfg.ExpPerRange
		if n > len(pool) {
			n = len(pool)
		}
		for _, id := range pool[:n] {
			splits[id] = SplitExp
		}
	}

	return splits, nil
}

// ApplySplitColumn writes each row's split into the split column, using
// train for rows without a singer ID.
func ApplySplitColumn(t *Table, splits map[string]string, singerColumn string) error {
	singerCol, err := t.ColumnIndex(singerColumn)
	if err != nil {
		return err
	}
	splitCol := t.EnsureColumn(SplitColumn)
	for row := range t.Rows {
		split := splits[t.Get(row, singerCol)]
		if split == "" {
			split = SplitTrain
		}
		t.Set(row, splitCol, split)
	}
	return nil
}

// MoveStats summarizes an ApplySplitDirs run.
type MoveStats struct {
	Moved   map[string]int // split -> singer directories placed
	Skipped int            // singers with no directory on disk
}

// ApplySplitDirs relocates each singer directory under
// audioDir/<split>/<singer>. Directories are renamed when possible and
// copied as a fallback (cross-device moves); copyMode keeps the
// originals and copies instead. Singers with no directory on disk are
// counted and skipped.
func ApplySplitDirs(audioDir string, splits map[string]string, copyMode bool) (MoveStats, error) {
	stats := MoveStats{Moved: map[string]int{SplitTrain: 0, SplitTest: 0, SplitExp: 0}}

	for _, split := range []string{SplitTrain, SplitTest, SplitExp} {
		if err := os.MkdirAll(filepath.Join(audioDir, split), 0o755); err != nil {
			return stats, fmt.Errorf("create split directory: %w", err)
		}
	}

	// Sorted iteration keeps failure points reproducible.
	singers := make([]string, 0, len(splits))
	for id := range splits {
		singers = append(singers, id)
	}
	sort.Strings(singers)

	for _, id := range singers {
		src := filepath.Join(audioDir, id)
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			stats.Skipped++
			continue
		}

		split := splits[id]
		dst := filepath.Join(audioDir, split, id)
		var moveErr error
		if copyMode {
			moveErr = copyTree(src, dst)
		} else {
			moveErr = moveDir(src, dst)
		}
		if moveErr != nil {
			return stats, fmt.Errorf("move %s to %s split: %w", id, split, moveErr)
		}
		stats.Moved[split]++
	}

	return stats, nil
}

// moveDir renames src to dst, falling back to a recursive copy + delete
// when rename crosses filesystems.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// splitRecord is one singer's entry in split_by_singer.json.
type splitRecord struct {
	ArtistName string `json:"artist_name,omitempty"`
	Split      string `json:"split"`
	SongCount  int    `json:"song_count"`
}

// WriteSplitJSON persists the singer→split assignment, with artist names
// resolved through the singer mapping when available.
func WriteSplitJSON(path string, t *Table, splits map[string]string, cfg SplitConfig, mapping SingerMapping) error {
	singerCol, err := t.ColumnIndex(cfg.SingerColumn)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for row := range t.Rows {
		if id := t.Get(row, singerCol); id != "" {
			counts[id]++
		}
	}

	records := make(map[string]splitRecord, len(splits))
	for id, split := range splits {
		rec := splitRecord{Split: split, SongCount: counts[id]}
		if info, ok := mapping[id]; ok {
			rec.ArtistName = info.Lowercase
		}
		records[id] = rec
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal split json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write split json: %w", err)
	}
	return nil
}
