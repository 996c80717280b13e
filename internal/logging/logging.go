package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init creates and sets the package-level default slog logger on stderr.
// JSON output is meant for running under a supervisor that collects logs;
// the text handler is easier to read in a terminal.
func Init(jsonOutput bool, level slog.Level) {
	slog.SetDefault(New(os.Stderr, jsonOutput, level))
}

// New builds a logger writing to w
func New(w io.Writer, jsonOutput bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
