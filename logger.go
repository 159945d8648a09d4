package binrec

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with binrec-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithFile adds the logical file name to the logger.
func (l *Logger) WithFile(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("file", name),
	}
}

// WithOp adds an operation field to the logger.
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", op),
	}
}

// LogSegmentSealed logs the compression result of one segment.
func (l *Logger) LogSegmentSealed(ctx context.Context, direction, path string, uncompressed, compressed int64, ratio float64) {
	l.InfoContext(ctx, "segment "+direction+"ed",
		"segment", path,
		"uncompressed", humanize.IBytes(uint64(uncompressed)),
		"compressed", humanize.IBytes(uint64(compressed)),
		"ratio_pct", ratio,
	)
}

// LogStreamSplit logs the one-time note that an output stream now spans
// multiple segments.
func (l *Logger) LogStreamSplit(ctx context.Context, from, to string) {
	l.InfoContext(ctx, "compressed output split into continuation segments",
		"renamed_from", from,
		"renamed_to", to,
	)
}

// LogFatal logs an unrecoverable error of a record file.
func (l *Logger) LogFatal(ctx context.Context, name, op string, err error) {
	l.ErrorContext(ctx, "fatal record file error",
		"file", name,
		"op", op,
		"error", err,
	)
}

// LogTranscode logs a file compression.
func (l *Logger) LogTranscode(ctx context.Context, name string, records int, inBytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compress failed",
			"file", name,
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compressed file",
			"file", name,
			"records", records,
			"size", humanize.IBytes(uint64(inBytes)),
		)
	}
}

// LogRemove logs the deletion of all segments of a file.
func (l *Logger) LogRemove(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"file", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "removed file",
			"file", name,
		)
	}
}
