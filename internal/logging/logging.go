// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// BatchIDKey is the context key for evaluation batch IDs.
	BatchIDKey ContextKey = "batch_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger

	// output is where InitLogger points new handlers.
	output io.Writer = os.Stderr
)

func init() {
	// Initialize with a default logger (text format, Warn level) so that
	// library users are not flooded with per-batch records.
	InitLogger(LevelWarn, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel converts a level name (debug, info, warn, error) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewParse("log level", s, "expected debug, info, warn or error")
	}
}

// ParseFormat converts a format name (json, text) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	default:
		return FormatText, errors.NewParse("log format", s, "expected json or text")
	}
}

// SetOutput changes the writer used by subsequent InitLogger calls.
func SetOutput(w io.Writer) {
	output = w
}

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// WithBatchID adds a batch ID to the context.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// GetBatchID retrieves the batch ID from the context.
func GetBatchID(ctx context.Context) string {
	if batchID, ok := ctx.Value(BatchIDKey).(string); ok {
		return batchID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if batchID := GetBatchID(ctx); batchID != "" {
		logger = logger.With("batch_id", batchID)
	}
	return logger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// HolderBound logs a holder construction, either fresh or served from cache.
func HolderBound(function, fingerprint string, cached bool, args ...any) {
	allArgs := []any{
		"function", function,
		"fingerprint", fingerprint,
		"cached", cached,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("holder_bound", allArgs...)
}

// BindFailure logs a rejected function call at bind time.
func BindFailure(function string, err error, args ...any) {
	allArgs := []any{
		"function", function,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("bind_failure", allArgs...)
}

// BatchEvaluated logs the completion of one projector batch.
func BatchEvaluated(ctx context.Context, rows int, arenaBytes int, duration time.Duration, args ...any) {
	allArgs := []any{
		"rows", rows,
		"arena_bytes", arenaBytes,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Debug("batch_evaluated", allArgs...)
}

// RowFault logs a non-fatal row-level diagnostic reported through an execution context.
func RowFault(ctx context.Context, message string, args ...any) {
	allArgs := []any{
		"message", message,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Warn("row_fault", allArgs...)
}
