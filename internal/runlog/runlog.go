// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog builds the logger owned by one conversion run. Lines go
// to the console and are appended to a persistent log file.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Logger is a run-scoped structured logger. Close releases the log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Open creates a logger writing timestamped text lines to console and,
// when path is non-empty, appending them to the file at path.
func Open(path string, console io.Writer) (*Logger, error) {
	var w io.Writer = console
	var f *os.File
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
			}
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", path, err)
		}
		w = io.MultiWriter(f, console)
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{Logger: slog.New(h), file: f}, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
