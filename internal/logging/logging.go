// Package logging configures the process-wide slog logger for mu.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LevelCritical sits above slog.LevelError. It is used for failures that
// indicate a caller bug (for example a strict lookup of an unknown field)
// but must not stop the process.
const LevelCritical = slog.Level(12)

// ParseLevel maps a config/flag level name to a slog level.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w. LevelCritical is rendered as
// "CRITICAL" instead of slog's default "ERROR+4".
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}))
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

// Critical logs msg at LevelCritical on logger, or slog.Default() when nil.
func Critical(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), LevelCritical, msg, args...)
}
