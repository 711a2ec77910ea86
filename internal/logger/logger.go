// Package logger provides structured logging for the analytics runtime.
// It wraps the standard log/slog package so that all components log with
// consistent field names (snake_case).
//
// The package supports two output formats:
//   - JSON (default): machine-readable structured logging
//   - Text: human-readable console output for interactive CLI use
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

var (
	output io.Writer  = os.Stderr
	level  slog.Level = slog.LevelInfo
	format            = "json"
)

func init() {
	rebuild()
}

func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	Logger = slog.New(handler)
}

// SetLevel configures the logging level.
func SetLevel(l slog.Level) {
	level = l
	rebuild()
}

// SetOutput redirects log output. Useful in tests.
func SetOutput(w io.Writer) {
	output = w
	rebuild()
}

// SetFormat selects the output format: "json" (default) or "text".
func SetFormat(f string) {
	if f == "json" || f == "text" {
		format = f
		rebuild()
	}
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithDataset returns a logger with dataset context.
func WithDataset(name string) *slog.Logger {
	return Logger.With("dataset", name)
}

// WithQuery returns a logger with query-run context.
func WithQuery(queryID string) *slog.Logger {
	return Logger.With("query_id", queryID)
}

// LogStage logs the completion of one pipeline stage with its timing.
// Stage names: compute, filter, bucket, aggregate, load, snapshot.
func LogStage(queryID, stage string, records int, duration time.Duration) {
	Logger.Info("stage completed",
		slog.String("query_id", queryID),
		slog.String("stage", stage),
		slog.Int("record_count", records),
		slog.Duration("duration", duration),
	)
}

// LogDropped logs records dropped during ingestion or bucketing.
// Dropped rows are always surfaced, never silently discarded.
func LogDropped(dataset, stage string, dropped, total int) {
	if dropped == 0 {
		return
	}
	Logger.Warn("records dropped",
		slog.String("dataset", dataset),
		slog.String("stage", stage),
		slog.Int("dropped", dropped),
		slog.Int("total", total),
	)
}
