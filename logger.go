package bcache

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with cache-specific helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithDevice adds a device field to the logger.
func (l *Logger) WithDevice(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", name),
	}
}

// LogIOError logs a failed transfer.
func (l *Logger) LogIOError(op string, block uint64, err error) {
	l.Warn("block i/o failed",
		"op", op,
		"block", block,
		"error", err,
	)
}

// LogProtocolViolation logs a fatal short transfer.
func (l *Logger) LogProtocolViolation(err *ProtocolError) {
	l.Error("short transfer, cache disabled",
		"op", err.Op,
		"block", err.Block,
		"transferred", err.Got,
		"expected", err.Want,
	)
}

// LogFlush logs a flush.
func (l *Logger) LogFlush(issued int, d time.Duration, err error) {
	if err != nil {
		l.Error("flush failed",
			"issued", issued,
			"duration", d,
			"error", err,
		)
	} else {
		l.Debug("flush completed",
			"issued", issued,
			"duration", d,
		)
	}
}

// LogWriteback logs a writeback pass.
func (l *Logger) LogWriteback(requested, issued int, err error) {
	if err != nil {
		l.Warn("writeback stopped",
			"requested", requested,
			"issued", issued,
			"error", err,
		)
	} else if issued > 0 {
		l.Debug("writeback issued",
			"requested", requested,
			"issued", issued,
		)
	}
}

// LogClose logs cache teardown with its final statistics.
func (l *Logger) LogClose(st Stats, err error) {
	if err != nil {
		l.Error("close failed",
			"error", err,
		)
		return
	}
	l.Info("cache closed",
		"read_hits", st.ReadHits,
		"read_misses", st.ReadMisses,
		"write_hits", st.WriteHits,
		"write_misses", st.WriteMisses,
		"write_zeroes", st.WriteZeroes,
		"prefetches", st.Prefetches,
		"io_errors", st.IOErrors,
	)
}
