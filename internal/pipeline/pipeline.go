// Package pipeline composes dataset-preparation steps into ordered,
// resumable-by-hand runs with per-stage timing. Each step is a Stage
// over a shared State; the Runner executes them in order and stops at
// the first failure.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/voxprep/voxprep/internal/dataset"
)

// State is the shared context threaded through the stages of one run.
// Stages read the inputs and publish their outputs here.
type State struct {
	// RunID identifies the run in logs. Generated when empty.
	RunID string
	// DatasetDir is the dataset root, holding the audio/ tree and the
	// metadata CSV.
	DatasetDir string
	// CSVPath is the dataset metadata CSV.
	CSVPath string
	// ArtistColumn names the CSV column with raw artist names.
	ArtistColumn string
	// TargetRate is the sample rate the audio is normalized to, in Hz.
	TargetRate int
	// Workers bounds per-stage worker pools.
	Workers int
	// Seed feeds every seeded shuffle in the run.
	Seed int64
	// ProgressOut receives progress bars. Nil disables rendering.
	ProgressOut io.Writer
	Logger      *slog.Logger

	// Mapping is published by the singer-id stage.
	Mapping dataset.SingerMapping
	// Splits is published by the split-dataset stage.
	Splits map[string]string
}

// AudioDir is the root of the <singer>/<song>/<utterance>.wav tree.
func (s *State) AudioDir() string {
	return filepath.Join(s.DatasetDir, "audio")
}

func (s *State) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Stage is one step of a preparation run.
type Stage interface {
	// Name identifies the stage in logs and error messages.
	Name() string
	// Run executes the stage, reading and updating the shared state.
	Run(ctx context.Context, st *State) error
}

// Runner executes stages in order, logging per-stage timing under the
// run ID.
type Runner struct {
	stages []Stage
}

// NewRunner creates a Runner over the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes every stage in order. The first failure stops the run
// and is returned wrapped with the stage name.
func (r *Runner) Run(ctx context.Context, st *State) error {
	if st.RunID == "" {
		st.RunID = uuid.NewString()
	}
	logger := st.logger().With(slog.String("run_id", st.RunID))
	st.Logger = logger

	runStart := time.Now()
	logger.Info("pipeline starting",
		slog.Int("stages", len(r.stages)),
		slog.String("dataset_dir", st.DatasetDir),
	)

	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		stageStart := time.Now()
		logger.Info("stage starting",
			slog.String("stage", stage.Name()),
			slog.Int("position", i+1),
		)

		if err := stage.Run(ctx, st); err != nil {
			logger.Error("stage failed",
				slog.String("stage", stage.Name()),
				slog.Duration("elapsed", time.Since(stageStart)),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		logger.Info("stage complete",
			slog.String("stage", stage.Name()),
			slog.Duration("elapsed", time.Since(stageStart)),
		)
	}

	logger.Info("pipeline complete", slog.Duration("elapsed", time.Since(runStart)))
	return nil
}
