// internal/logging/logging.go

// Package logging builds the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the handler flavor and destination.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is one of pretty, json, text.
	Format string
	// File, when set, additionally writes logs to a size-rotated file.
	File string
}

// New builds a logger from the options without touching global state.
func New(o Options) *slog.Logger {
	var w io.Writer = os.Stderr
	if o.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		})
	}

	level := ParseLevel(o.Level)
	var handler slog.Handler
	switch o.Format {
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// Setup builds a logger and installs it as the process default.
func Setup(o Options) *slog.Logger {
	logger := New(o)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string level to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
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
