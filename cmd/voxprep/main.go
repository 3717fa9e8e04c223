// Package main provides the voxprep command-line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxprep/voxprep/internal/chunker"
	"github.com/voxprep/voxprep/internal/cli"
	"github.com/voxprep/voxprep/internal/config"
)

// Exit codes. An empty source prefix is distinguishable so callers can
// tell "nothing to do" from a real failure.
const (
	exitOK          = 0
	exitError       = 1
	exitEmptySource = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		if errors.Is(err, chunker.ErrNoObjects) {
			logger.Warn("no objects under source prefix")
			return exitEmptySource
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}
