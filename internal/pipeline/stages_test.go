package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxprep/voxprep/internal/audio"
	"github.com/voxprep/voxprep/internal/dataset"
)

func writeDatasetCSV(t *testing.T, st *State, content string) {
	t.Helper()
	st.CSVPath = filepath.Join(st.DatasetDir, "dataset.csv")
	require.NoError(t, os.WriteFile(st.CSVPath, []byte(content), 0o644))
}

func TestSingerIDStage(t *testing.T) {
	st := testState(t)
	st.ArtistColumn = "Artist"
	writeDatasetCSV(t, st, "Artist\nAdele\nadele\nPrince\nSomeone feat. Else\n")

	stage := &SingerIDStage{}
	require.NoError(t, stage.Run(context.Background(), st))

	require.Len(t, st.Mapping, 2)
	assert.FileExists(t, filepath.Join(st.DatasetDir, "singer_mapping.json"))

	table, err := dataset.LoadTable(st.CSVPath)
	require.NoError(t, err)
	col, err := table.ColumnIndex(dataset.SingerIDColumn)
	require.NoError(t, err)
	assert.Equal(t, "id00001", table.Get(0, col))
	assert.Equal(t, "", table.Get(3, col))
}

func TestSingerIDStage_MissingCSV(t *testing.T) {
	st := testState(t)
	st.CSVPath = filepath.Join(st.DatasetDir, "nope.csv")
	st.ArtistColumn = "Artist"

	assert.Error(t, (&SingerIDStage{}).Run(context.Background(), st))
}

func TestSplitDatasetStage(t *testing.T) {
	st := testState(t)
	st.Mapping = dataset.SingerMapping{"id00001": {Lowercase: "a"}}

	// Six singers with varied song counts, plus their directories.
	csv := "singer_id\n"
	counts := map[string]int{
		"id00001": 3, "id00002": 3, "id00003": 3,
		"id00004": 1, "id00005": 8, "id00006": 3,
	}
	for id, n := range counts {
		for i := 0; i < n; i++ {
			csv += id + "\n"
		}
		require.NoError(t, os.MkdirAll(filepath.Join(st.AudioDir(), id, "song"), 0o755))
	}
	writeDatasetCSV(t, st, csv)

	stage := &SplitDatasetStage{}
	require.NoError(t, stage.Run(context.Background(), st))

	require.Len(t, st.Splits, 6)
	assert.FileExists(t, filepath.Join(st.DatasetDir, "split_by_singer.json"))

	table, err := dataset.LoadTable(st.CSVPath)
	require.NoError(t, err)
	_, err = table.ColumnIndex(dataset.SplitColumn)
	require.NoError(t, err)

	// Every singer directory moved under its split.
	for id, split := range st.Splits {
		assert.DirExists(t, filepath.Join(st.AudioDir(), split, id))
		assert.NoDirExists(t, filepath.Join(st.AudioDir(), id))
	}
}

func TestSplitDatasetStage_UsesStateSeed(t *testing.T) {
	// Enough singers with varied song counts that different seeds give
	// different assignments.
	csv := "singer_id\n"
	for i := 1; i <= 40; i++ {
		n := []int{1, 3, 8}[i%3]
		for j := 0; j < n; j++ {
			csv += fmt.Sprintf("id%05d\n", i)
		}
	}

	runWithSeed := func(seed int64) map[string]string {
		st := testState(t)
		st.Seed = seed
		writeDatasetCSV(t, st, csv)
		require.NoError(t, (&SplitDatasetStage{}).Run(context.Background(), st))
		return st.Splits
	}

	// The stage must assign exactly what a directly seeded split does.
	table := &dataset.Table{Header: []string{"singer_id"}}
	for i := 1; i <= 40; i++ {
		n := []int{1, 3, 8}[i%3]
		for j := 0; j < n; j++ {
			table.Rows = append(table.Rows, []string{fmt.Sprintf("id%05d", i)})
		}
	}
	cfg := dataset.DefaultSplitConfig()
	cfg.Seed = 7
	expected, err := dataset.AssignSplits(table, cfg)
	require.NoError(t, err)

	assert.Equal(t, expected, runWithSeed(7))
	assert.NotEqual(t, runWithSeed(7), runWithSeed(1234))
}

func TestPairsStage(t *testing.T) {
	st := testState(t)
	st.Seed = 42

	testDir := filepath.Join(st.AudioDir(), dataset.SplitTest, "id00001", "song")
	require.NoError(t, os.MkdirAll(testDir, 0o755))
	for _, name := range []string{"00001.wav", "00002.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(testDir, name), []byte("x"), 0o644))
	}

	require.NoError(t, (&PairsStage{}).Run(context.Background(), st))

	assert.FileExists(t, filepath.Join(st.DatasetDir, "pairs_test.txt"))
	// No exp directory: skipped without error.
	assert.NoFileExists(t, filepath.Join(st.DatasetDir, "pairs_exp.txt"))
}

func TestPrepare_StageOrder(t *testing.T) {
	stages := Prepare(nil, nil, audio.DefaultSplitOpts())

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"resample", "split", "singer-id", "split-dataset", "pairs"}, names)
}
