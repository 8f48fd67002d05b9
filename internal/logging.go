package internal

import (
	"io"
	"log/slog"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Level shared by every logger created with [NewLogger], so the level can
// change after the logger is installed.
var logLevel = new(slog.LevelVar)

// Creates a logger writing records to w in the given format.
//
// Unknown formats fall back to text. Verbose loggers include the source
// location of each record.
func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: verbose,
	}

	var handler slog.Handler
	if format == LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", Name)
}

// Sets the level of every logger created with [NewLogger].
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// Returns the log level derived from the quiet and debug modes. Debug wins
// over quiet.
func LogLevel() slog.Level {
	if IsDebug() {
		return slog.LevelDebug
	}
	if IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
