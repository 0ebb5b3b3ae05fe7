// Package logging builds the zap logger used across chromatic. The exhibit
// owns the terminal, so interactive runs log to a file under the data
// directory instead of stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFileLogger returns a production zap logger writing to
// <dataDir>/logs/chromatic.log. With debug enabled the level drops to Debug.
// Callers must Sync() on shutdown.
func NewFileLogger(dataDir string, debug bool) (*zap.Logger, error) {
	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(logsDir, "chromatic.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewStderrLogger returns a logger for non-interactive subcommands, where
// stderr is free for diagnostics.
func NewStderrLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
