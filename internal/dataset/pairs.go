package dataset

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one verification trial: Label 1 when both paths belong to the
// same singer, 0 otherwise. Paths are relative to the scanned directory.
type Pair struct {
	Label int
	A     string
	B     string
}

// IsEvalSplit reports whether a CSV split value selects an evaluation
// row. Both string labels and the legacy numeric encoding (0=train,
// 1=test, 2=exp) are accepted.
func IsEvalSplit(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SplitTest, SplitExp, "1", "2":
		return true
	}
	return false
}

// EvalSingers returns the set of singer IDs whose rows are in an
// evaluation split.
func EvalSingers(t *Table, singerColumn, splitColumn string) (map[string]bool, error) {
	singerCol, err := t.ColumnIndex(singerColumn)
	if err != nil {
		return nil, err
	}
	splitCol, err := t.ColumnIndex(splitColumn)
	if err != nil {
		return nil, err
	}

	singers := make(map[string]bool)
	for row := range t.Rows {
		if !IsEvalSplit(t.Get(row, splitCol)) {
			continue
		}
		if id := t.Get(row, singerCol); id != "" {
			singers[id] = true
		}
	}
	return singers, nil
}

// BuildPairs scans dir (layout: <singer>/<song>/<utterance>.wav) for the
// given singers and emits one positive pair per same-singer utterance
// combination plus a matching negative pair against another singer's
// utterance. Pairs are deduplicated; output is deterministic for a given
// tree and seed.
func BuildPairs(dir string, singers map[string]bool, seed int64) ([]Pair, error) {
	bySinger, all, err := scanUtterances(dir, singers)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))

	singerIDs := make([]string, 0, len(bySinger))
	for id := range bySinger {
		singerIDs = append(singerIDs, id)
	}
	sort.Strings(singerIDs)

	var pairs []Pair
	used := make(map[[2]string]bool)

	for _, id := range singerIDs {
		files := bySinger[id]

		others := make([]string, 0, len(all)-len(files))
		prefix := id + "/"
		for _, f := range all {
			if !strings.HasPrefix(f, prefix) {
				others = append(others, f)
			}
		}
		rng.Shuffle(len(others), func(i, j int) {
			others[i], others[j] = others[j], others[i]
		})

		n := 0
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				key := pairKey(files[i], files[j])
				if used[key] {
					continue
				}
				used[key] = true
				pairs = append(pairs, Pair{Label: 1, A: files[i], B: files[j]})

				if len(others) == 0 {
					continue
				}
				neg := others[n%len(others)]
				n++
				negKey := pairKey(files[i], neg)
				if used[negKey] {
					// Find any unused counterpart instead.
					for _, alt := range others {
						altKey := pairKey(files[i], alt)
						if !used[altKey] {
							neg, negKey = alt, altKey
							break
						}
					}
					if used[negKey] {
						continue
					}
				}
				used[negKey] = true
				pairs = append(pairs, Pair{Label: 0, A: files[i], B: neg})
			}
		}
	}

	return pairs, nil
}

// scanUtterances walks dir collecting <singer>/<song>/<file>.wav paths.
func scanUtterances(dir string, singers map[string]bool) (map[string][]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read pairs directory: %w", err)
	}

	bySinger := make(map[string][]string)
	var all []string

	for _, singerEntry := range entries {
		if !singerEntry.IsDir() {
			continue
		}
		id := singerEntry.Name()
		if len(singers) > 0 && !singers[id] {
			continue
		}

		songEntries, err := os.ReadDir(filepath.Join(dir, id))
		if err != nil {
			return nil, nil, fmt.Errorf("read singer directory %s: %w", id, err)
		}
		for _, songEntry := range songEntries {
			if !songEntry.IsDir() {
				continue
			}
			song := songEntry.Name()
			wavs, err := filepath.Glob(filepath.Join(dir, id, song, "*.wav"))
			if err != nil {
				return nil, nil, err
			}
			sort.Strings(wavs)
			for _, wav := range wavs {
				rel := id + "/" + song + "/" + filepath.Base(wav)
				bySinger[id] = append(bySinger[id], rel)
				all = append(all, rel)
			}
		}
	}

	return bySinger, all, nil
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// WritePairs saves pairs as "label path1 path2" lines.
func WritePairs(path string, pairs []Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pairs file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%d %s %s\n", p.Label, p.A, p.B); err != nil {
			_ = f.Close()
			return fmt.Errorf("write pair: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush pairs file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pairs file: %w", err)
	}
	return nil
}
