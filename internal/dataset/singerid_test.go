package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArtist(t *testing.T) {
	tests := []struct {
		name     string
		artist   string
		filtered bool
	}{
		{"plain name", "Adele", false},
		{"empty", "", true},
		{"featuring", "Adele feat. Someone", true},
		{"orchestra", "Berlin Orchestra", true},
		{"orchestra case insensitive", "berlin orchestra", true},
		{"dj project", "DJ Shadow", true},
		{"ampersand", "Simon & Garfunkel", true},
		{"comma", "Lennon, John", true},
		{"versus", "A vs. B", true},
		{"unknown", "Unknown Artist", true},
		{"cjk ensemble", "上海交响乐团", true},
		{"with collaboration", "Ella with Louis", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.filtered, FilterArtist(tt.artist))
		})
	}
}

func TestAssignSingerIDs(t *testing.T) {
	table := &Table{
		Header: []string{"Artist"},
		Rows: [][]string{
			{"Prince"},
			{"adele"},
			{"Adele"},
			{"Someone feat. Else"},
			{"Björk"},
		},
	}

	mapping, err := AssignSingerIDs(table, "Artist")
	require.NoError(t, err)

	// Three distinct singers, IDs in sorted lowercase order.
	require.Len(t, mapping, 3)
	assert.Equal(t, "adele", mapping["id00001"].Lowercase)
	assert.Equal(t, []string{"adele", "Adele"}, mapping["id00001"].Variations)
	assert.Equal(t, "björk", mapping["id00002"].Lowercase)
	assert.Equal(t, "prince", mapping["id00003"].Lowercase)

	idCol, err := table.ColumnIndex(SingerIDColumn)
	require.NoError(t, err)
	assert.Equal(t, "id00003", table.Get(0, idCol))
	assert.Equal(t, "id00001", table.Get(1, idCol))
	assert.Equal(t, "id00001", table.Get(2, idCol))
	assert.Equal(t, "", table.Get(3, idCol), "filtered artists get no ID")
	assert.Equal(t, "id00002", table.Get(4, idCol))
}

func TestAssignSingerIDs_MissingColumn(t *testing.T) {
	table := &Table{Header: []string{"url"}}
	_, err := AssignSingerIDs(table, "Artist")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestAssignSingerIDs_Deterministic(t *testing.T) {
	build := func() *Table {
		return &Table{
			Header: []string{"Artist"},
			Rows:   [][]string{{"Zed"}, {"Ann"}, {"Mia"}},
		}
	}

	m1, err := AssignSingerIDs(build(), "Artist")
	require.NoError(t, err)
	m2, err := AssignSingerIDs(build(), "Artist")
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestSingerMapping_SaveLoad(t *testing.T) {
	mapping := SingerMapping{
		"id00001": {Lowercase: "adele", Variations: []string{"Adele", "adele"}},
	}
	path := filepath.Join(t.TempDir(), "singers.json")
	require.NoError(t, mapping.Save(path))

	loaded, err := LoadSingerMapping(path)
	require.NoError(t, err)
	assert.Equal(t, mapping, loaded)
}

func TestLoadSingerMapping_Missing(t *testing.T) {
	_, err := LoadSingerMapping(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
