package logger

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// Init initializes the logger to write JSON records to stdout.
func Init(debug bool) {
	InitWithWriter(os.Stdout, debug)
}

// InitWithWriter is Init with an explicit destination, used by tests.
func InitWithWriter(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
}

func get() *slog.Logger {
	if Logger == nil {
		Init(false)
	}
	return Logger
}

// LogError logs an error with a message and optional key-value pairs
func LogError(msg string, err error, args ...any) {
	attrs := []any{"error", err}
	attrs = append(attrs, args...)
	get().Error(msg, attrs...)
}

// LogInfo logs an informational message with optional key-value pairs
func LogInfo(msg string, args ...any) {
	get().Info(msg, args...)
}

// LogWarn logs a warning message with optional key-value pairs
func LogWarn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// LogDebug logs a debug message with optional key-value pairs
func LogDebug(msg string, args ...any) {
	get().Debug(msg, args...)
}
