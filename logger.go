package querygo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with querygo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// With returns a Logger whose entries all carry the given attributes.
// Engines use it to stamp the cache key on their fetch logs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// LogQuery logs a query evaluation.
func (l *Logger) LogQuery(ctx context.Context, results int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"results", results,
			"duration", duration,
		)
	}
}

// LogFetch logs a source fetch. The cache key rides along as a logger
// attribute, stamped once at engine construction.
func (l *Logger) LogFetch(ctx context.Context, records int, stale bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fetch failed",
			"error", err,
		)
	} else if stale {
		l.WarnContext(ctx, "serving stale records",
			"records", records,
		)
	} else {
		l.DebugContext(ctx, "fetch completed",
			"records", records,
		)
	}
}

// LogRefresh logs a forced refresh.
func (l *Logger) LogRefresh(ctx context.Context, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "refresh failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "refresh completed",
			"records", records,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"name", name,
			"entries", entries,
		)
	}
}
