// Package logging configures the process-wide slog logger.
//
// Records are rendered by a charmbracelet/log handler so the text output
// matches the look of the terminal UI; JSON output is available for
// scripted runs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Setup configures the global slog logger based on level and format and
// returns it. A nil writer logs to stderr.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           parseLevel(level),
	})
	if strings.ToLower(format) == "json" {
		handler.SetFormatter(charmlog.JSONFormatter)
	} else {
		handler.SetFormatter(charmlog.TextFormatter)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Discard installs a logger that drops every record.
func Discard() *slog.Logger {
	return Setup("error", "text", io.Discard)
}

// OpenFile opens path for appending log output.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// parseLevel converts a string log level to a charm log level.
func parseLevel(level string) charmlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// WithFields returns the default logger with additional structured fields.
//
// Usage:
//
//	fileLogger := logging.WithFields("input", path)
//	fileLogger.Info("conversion started")
//	// ... later ...
//	fileLogger.Info("conversion completed", "rows", n)
func WithFields(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
