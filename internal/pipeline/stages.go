package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/voxprep/voxprep/internal/audio"
	"github.com/voxprep/voxprep/internal/dataset"
)

// batchOpts derives the audio batch settings from the state.
func batchOpts(st *State) audio.BatchOpts {
	return audio.BatchOpts{
		Workers:     st.Workers,
		ProgressOut: st.ProgressOut,
		Logger:      st.logger(),
	}
}

// ResampleStage normalizes every .wav under the audio tree to the
// target sample rate.
type ResampleStage struct {
	Resampler audio.Resampler
}

func (s *ResampleStage) Name() string { return "resample" }

func (s *ResampleStage) Run(ctx context.Context, st *State) error {
	_, err := audio.ResampleTree(ctx, s.Resampler, st.AudioDir(), st.TargetRate, batchOpts(st))
	return err
}

// SplitStage splits each track into utterances at silence boundaries.
type SplitStage struct {
	Splitter audio.Splitter
	Opts     audio.SplitOpts
}

func (s *SplitStage) Name() string { return "split" }

func (s *SplitStage) Run(ctx context.Context, st *State) error {
	_, err := audio.SplitTree(ctx, s.Splitter, st.AudioDir(), s.Opts, batchOpts(st))
	return err
}

// SingerIDStage assigns synthetic singer IDs to the metadata CSV and
// writes the ID-to-artist mapping JSON next to it.
type SingerIDStage struct {
	// MappingPath overrides the mapping output location. Defaults to
	// singer_mapping.json in the dataset directory.
	MappingPath string
}

func (s *SingerIDStage) Name() string { return "singer-id" }

func (s *SingerIDStage) Run(ctx context.Context, st *State) error {
	table, err := dataset.LoadTable(st.CSVPath)
	if err != nil {
		return err
	}

	mapping, err := dataset.AssignSingerIDs(table, st.ArtistColumn)
	if err != nil {
		return err
	}

	mappingPath := s.MappingPath
	if mappingPath == "" {
		mappingPath = filepath.Join(st.DatasetDir, "singer_mapping.json")
	}
	if err := mapping.Save(mappingPath); err != nil {
		return err
	}
	if err := table.Save(st.CSVPath); err != nil {
		return err
	}

	st.Mapping = mapping
	st.logger().Info("singer ids assigned",
		slog.Int("singers", len(mapping)),
		slog.String("mapping", mappingPath),
	)
	return nil
}

// SplitDatasetStage partitions singers into train/test/exp, relocates
// their directories, updates the CSV, and records the assignment as
// split_by_singer.json.
type SplitDatasetStage struct {
	Config dataset.SplitConfig
	// SplitJSONPath overrides the assignment output location. Defaults
	// to split_by_singer.json in the dataset directory.
	SplitJSONPath string
}

func (s *SplitDatasetStage) Name() string { return "split-dataset" }

func (s *SplitDatasetStage) Run(ctx context.Context, st *State) error {
	cfg := s.Config
	if cfg.SingerColumn == "" {
		cfg = dataset.DefaultSplitConfig()
		// One seed drives the whole run: the split assignment must use
		// the same value the pairs stage does.
		cfg.Seed = st.Seed
	}

	table, err := dataset.LoadTable(st.CSVPath)
	if err != nil {
		return err
	}

	splits, err := dataset.AssignSplits(table, cfg)
	if err != nil {
		return err
	}
	if err := dataset.ApplySplitColumn(table, splits, cfg.SingerColumn); err != nil {
		return err
	}
	if err := table.Save(st.CSVPath); err != nil {
		return err
	}

	stats, err := dataset.ApplySplitDirs(st.AudioDir(), splits, false)
	if err != nil {
		return err
	}

	jsonPath := s.SplitJSONPath
	if jsonPath == "" {
		jsonPath = filepath.Join(st.DatasetDir, "split_by_singer.json")
	}
	if err := dataset.WriteSplitJSON(jsonPath, table, splits, cfg, st.Mapping); err != nil {
		return err
	}

	st.Splits = splits
	st.logger().Info("dataset split",
		slog.Int("train", stats.Moved[dataset.SplitTrain]),
		slog.Int("test", stats.Moved[dataset.SplitTest]),
		slog.Int("exp", stats.Moved[dataset.SplitExp]),
		slog.Int("skipped", stats.Skipped),
	)
	return nil
}

// PairsStage emits verification trial pairs for each evaluation split
// directory, as pairs_<split>.txt in the dataset directory.
type PairsStage struct{}

func (s *PairsStage) Name() string { return "pairs" }

func (s *PairsStage) Run(ctx context.Context, st *State) error {
	for _, split := range []string{dataset.SplitTest, dataset.SplitExp} {
		dir := filepath.Join(st.AudioDir(), split)
		if _, err := os.Stat(dir); err != nil {
			st.logger().Warn("no split directory, skipping pairs",
				slog.String("split", split),
			)
			continue
		}

		pairs, err := dataset.BuildPairs(dir, nil, st.Seed)
		if err != nil {
			return fmt.Errorf("build %s pairs: %w", split, err)
		}

		path := filepath.Join(st.DatasetDir, "pairs_"+split+".txt")
		if err := dataset.WritePairs(path, pairs); err != nil {
			return err
		}
		st.logger().Info("pairs written",
			slog.String("split", split),
			slog.Int("pairs", len(pairs)),
			slog.String("path", path),
		)
	}
	return nil
}

// Prepare is the standard preparation chain: resample the audio, split
// it into utterances, assign singer IDs, partition by singer, and emit
// trial pairs.
func Prepare(resampler audio.Resampler, splitter audio.Splitter, splitOpts audio.SplitOpts) []Stage {
	return []Stage{
		&ResampleStage{Resampler: resampler},
		&SplitStage{Splitter: splitter, Opts: splitOpts},
		&SingerIDStage{},
		&SplitDatasetStage{},
		&PairsStage{},
	}
}
