package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// SingerIDColumn is the CSV column written by AssignSingerIDs.
const SingerIDColumn = "singer_id"

// artistBlocklist excludes names that do not identify a single singer:
// ensembles and orchestras, DJ projects, collaborations, and unknown or
// placeholder entries. Mirrors the curation rules the corpus was built
// with.
var artistBlocklist = regexp.MustCompile(`(?i)(` + strings.Join([]string{
	`feat\.`,
	`Orchestra|Philharmonic|Symphonica|Chamber|Ensemble|Piano|strings?|Symphon|Concerto|choir|chorus|Philharmoniker`,
	`交响|乐团|协奏曲|合唱`,
	`DJ |D\.J\.`,
	`vs\.`,
	`' '`,
	`&`,
	`unknown|anonymous`,
	`light - quiet`,
	`with`, `collection`, `collective`, `,`,
}, "|") + `)`)

// SingerInfo records the name variations behind one synthetic singer ID.
type SingerInfo struct {
	Lowercase  string   `json:"lowercase"`
	Variations []string `json:"variations"`
}

// SingerMapping maps synthetic IDs ("id00001", …) to the artist names
// they stand for.
type SingerMapping map[string]SingerInfo

// FilterArtist reports whether name is excluded from ID assignment.
func FilterArtist(name string) bool {
	return name == "" || artistBlocklist.MatchString(name)
}

// AssignSingerIDs filters invalid artist names, groups the remainder
// case-insensitively, and assigns `id%05d` identifiers in sorted order of
// the lowercase name, deterministic for a given input. The table gains a
// singer_id column, left empty for filtered rows.
func AssignSingerIDs(t *Table, artistColumn string) (SingerMapping, error) {
	artistCol, err := t.ColumnIndex(artistColumn)
	if err != nil {
		return nil, err
	}

	// Group surviving names case-insensitively, keeping each variation's
	// first-seen order.
	variations := make(map[string][]string)
	for row := range t.Rows {
		name := t.Get(row, artistCol)
		if FilterArtist(name) {
			continue
		}
		lower := strings.ToLower(name)
		if !slices.Contains(variations[lower], name) {
			variations[lower] = append(variations[lower], name)
		}
	}

	lowers := make([]string, 0, len(variations))
	for lower := range variations {
		lowers = append(lowers, lower)
	}
	sort.Strings(lowers)

	mapping := make(SingerMapping, len(lowers))
	idByLower := make(map[string]string, len(lowers))
	for i, lower := range lowers {
		id := fmt.Sprintf("id%05d", i+1)
		mapping[id] = SingerInfo{Lowercase: lower, Variations: variations[lower]}
		idByLower[lower] = id
	}

	idCol := t.EnsureColumn(SingerIDColumn)
	for row := range t.Rows {
		name := t.Get(row, artistCol)
		if FilterArtist(name) {
			t.Set(row, idCol, "")
			continue
		}
		t.Set(row, idCol, idByLower[strings.ToLower(name)])
	}

	return mapping, nil
}

// Save writes the mapping as indented JSON.
func (m SingerMapping) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal singer mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write singer mapping: %w", err)
	}
	return nil
}

// LoadSingerMapping reads a mapping written by Save.
func LoadSingerMapping(path string) (SingerMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read singer mapping: %w", err)
	}
	var m SingerMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse singer mapping: %w", err)
	}
	return m, nil
}
