// Package logger builds the slog loggers used across the scraper.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing to w in the given format ("json" or "text").
// Unknown levels fall back to info.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Rotation bounds the log file: it is rotated once it passes MaxSizeMB
// megabytes and at most MaxBackups rotated files are kept.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
}

// DefaultRotation rotates at 1 MB.
var DefaultRotation = Rotation{MaxSizeMB: 1, MaxBackups: 3}

// RotatingFile appends to path and rotates it by size. The caller closes the
// returned logger.
func RotatingFile(path string, rot Rotation) (*lumberjack.Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if rot.MaxSizeMB < 1 {
		rot.MaxSizeMB = DefaultRotation.MaxSizeMB
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		LocalTime:  true,
	}, nil
}

// Output returns the writer a CLI run logs to: stderr, teed to the rotating
// log file when path is set.
func Output(path string, rot Rotation) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stderr, io.NopCloser(nil), nil
	}

	f, err := RotatingFile(path, rot)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stderr, f), f, nil
}
