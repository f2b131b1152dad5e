// Package logging configures the process logger and the structured fields
// attached to webhook, dispatch and broker log lines.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/telhawk-systems/feishu-trigger/internal/middleware"
)

// Formats accepted by New. Anything else selects JSON.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Logger is a slog.Logger whose *Context methods add the request id
// carried by the context.
type Logger struct {
	*slog.Logger
}

// New returns a Logger writing to stdout.
func New(level slog.Level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatText) {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, opts))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
}

// Default wraps slog.Default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// WithContext returns the underlying logger with the request id of ctx attached.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	reqID := middleware.GetRequestID(ctx)
	if reqID == "" {
		return l.Logger
	}
	return l.Logger.With(slog.String(FieldRequestID, reqID))
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if !l.Enabled(ctx, level) {
		return
	}
	l.WithContext(ctx).Log(ctx, level, msg, args...)
}

// With returns a Logger with args added to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Unknown values yield info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SetDefault installs l as the slog and log package default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
