package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordStage struct {
	name string
	err  error
	runs *[]string
}

func (s *recordStage) Name() string { return s.name }

func (s *recordStage) Run(_ context.Context, _ *State) error {
	*s.runs = append(*s.runs, s.name)
	return s.err
}

func testState(t *testing.T) *State {
	t.Helper()
	return &State{
		DatasetDir: t.TempDir(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunner_RunsStagesInOrder(t *testing.T) {
	var runs []string
	r := NewRunner(
		&recordStage{name: "first", runs: &runs},
		&recordStage{name: "second", runs: &runs},
		&recordStage{name: "third", runs: &runs},
	)

	st := testState(t)
	require.NoError(t, r.Run(context.Background(), st))
	assert.Equal(t, []string{"first", "second", "third"}, runs)
	assert.NotEmpty(t, st.RunID, "run ID is generated when empty")
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	var runs []string
	boom := errors.New("boom")
	r := NewRunner(
		&recordStage{name: "first", runs: &runs},
		&recordStage{name: "second", runs: &runs, err: boom},
		&recordStage{name: "third", runs: &runs},
	)

	err := r.Run(context.Background(), testState(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage second")
	assert.Equal(t, []string{"first", "second"}, runs)
}

func TestRunner_KeepsGivenRunID(t *testing.T) {
	st := testState(t)
	st.RunID = "fixed"
	require.NoError(t, NewRunner().Run(context.Background(), st))
	assert.Equal(t, "fixed", st.RunID)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs []string
	r := NewRunner(&recordStage{name: "first", runs: &runs})
	err := r.Run(ctx, testState(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runs)
}
