// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds process-wide settings. Per-command parameters (prefixes,
// chunk counts, dataset paths) come from CLI flags instead.
type Config struct {
	// Storage settings
	Bucket             string `env:"VOXPREP_BUCKET" json:"bucket,omitempty"`
	AWSRegion          string `env:"AWS_REGION, default=us-east-1" json:"aws_region"`
	AWSEndpoint        string `env:"AWS_ENDPOINT_URL" json:"aws_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Processing settings
	Workers     string `env:"VOXPREP_WORKERS, default=auto" json:"workers"` // "auto" or a number
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// NumWorkers resolves the Workers setting to a concrete worker count.
// "auto" (or anything unparsable) means one worker per CPU.
func (c *Config) NumWorkers() int {
	if c.Workers != "" && c.Workers != "auto" {
		if n, err := strconv.Atoi(c.Workers); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// NewLogger creates a structured logger based on the configuration.
// Logs go to stderr so command output (manifests, summaries) stays clean
// on stdout.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive
// values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Bucket: %s, AWSRegion: %s, Workers: %s, FFmpegPath: %s, LogFormat: %s, LogLevel: %s}",
		c.Bucket,
		c.AWSRegion,
		c.Workers,
		c.FFmpegPath,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
