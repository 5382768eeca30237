// Package log provides category-tagged structured logging for suanpan.
//
// Calls take a Category first and slog-style key/value pairs after the
// message:
//
//	log.Debug(log.CatCarry, "carry applied", "from", 3, "to", 2)
//	log.ErrorErr(log.CatConfig, "reading config", err, "path", path)
//
// Until Configure is called every record is discarded, so library packages can
// log freely without a caller opting in.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Category groups log records by subsystem.
type Category string

const (
	CatCarry  Category = "carry"
	CatConfig Category = "config"
	CatCLI    Category = "cli"
	CatWatch  Category = "watch"
	CatTrace  Category = "trace"
)

// Output formats accepted by Configure.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Configure routes records at or above level to w in the given format.
func Configure(w io.Writer, level slog.Level, format string) error {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case "", FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	current.Store(slog.New(handler))
	return nil
}

// ParseLevel converts a level name (debug, info, warn, error) into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log level %q: %w", s, err)
	}
	return level, nil
}

// With returns a logger carrying args on every record, for callers that need
// a correlation id (such as a replay session) across many calls.
func With(args ...any) *Logger {
	return &Logger{args: args}
}

// Logger is a category logger with bound attributes.
type Logger struct {
	args []any
}

func (l *Logger) Debug(cat Category, msg string, args ...any) {
	emit(slog.LevelDebug, cat, msg, append(l.args[:len(l.args):len(l.args)], args...))
}

func (l *Logger) Info(cat Category, msg string, args ...any) {
	emit(slog.LevelInfo, cat, msg, append(l.args[:len(l.args):len(l.args)], args...))
}

func (l *Logger) Warn(cat Category, msg string, args ...any) {
	emit(slog.LevelWarn, cat, msg, append(l.args[:len(l.args):len(l.args)], args...))
}

func (l *Logger) ErrorErr(cat Category, msg string, err error, args ...any) {
	emit(slog.LevelError, cat, msg, append(append(l.args[:len(l.args):len(l.args)], "error", err), args...))
}

// Debug logs at debug level.
func Debug(cat Category, msg string, args ...any) { emit(slog.LevelDebug, cat, msg, args) }

// Info logs at info level.
func Info(cat Category, msg string, args ...any) { emit(slog.LevelInfo, cat, msg, args) }

// Warn logs at warn level.
func Warn(cat Category, msg string, args ...any) { emit(slog.LevelWarn, cat, msg, args) }

// Error logs at error level.
func Error(cat Category, msg string, args ...any) { emit(slog.LevelError, cat, msg, args) }

// ErrorErr logs err at error level under the "error" key.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	emit(slog.LevelError, cat, msg, append([]any{"error", err}, args...))
}

func emit(level slog.Level, cat Category, msg string, args []any) {
	ctx := context.Background()
	l := current.Load()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, append([]any{"cat", string(cat)}, args...)...)
}
