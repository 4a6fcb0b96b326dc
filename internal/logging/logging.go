package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup creates a configured *slog.Logger, sets it as the default, and returns it.
// The level parameter accepts: "debug", "info", "warn", "error" (case-insensitive).
// Defaults to info if the level string is unrecognized.
func Setup(level string) *slog.Logger {
	logger := New(os.Stderr, level)
	slog.SetDefault(logger)
	return logger
}

// New builds a text logger writing to w without touching the default logger.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps a level name to a slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
