// Package logx wraps log/slog with the two extra severities the engine
// needs beyond slog's four built-in levels: a Trace level below Debug for
// per-frame GPU bookkeeping, and a Fatal level above Error that exits the
// process. Shaped after cogentcore-core's grog package (see
// loghandler_test.go/level_test.go), which layers the same Level/Printf
// wrapper over slog.
package logx

import (
	"context"
	"log/slog"
	"os"
)

// Level extends slog's levels with Trace and Fatal. The numeric spacing
// matches slog's convention of 4 per named level so Trace/Fatal sort
// correctly against slog.LevelDebug..slog.LevelError.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// LevelFromFlags maps the CLI's -v/-q style flags to a Level, mirroring
// grog's LevelFromFlags: verbose wins over quiet, and the default is Info.
func LevelFromFlags(verbose, trace, quiet bool) slog.Level {
	switch {
	case trace:
		return LevelTrace
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a thin wrapper over *slog.Logger adding Trace/Fatal and a
// consistent component tag, used throughout the engine instead of the
// standard library's bare log package.
type Logger struct {
	inner *slog.Logger
}

// New builds a Logger writing text-formatted records to w at the given
// minimum level, tagged with component.
func New(w *os.File, level slog.Level, component string) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h).With("component", component)}
}

func (l *Logger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Fatal logs at LevelFatal then exits the process with status 1. Reserved
// for unrecoverable engine-init failures that would otherwise just panic.
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(LevelFatal, msg, args...)
	os.Exit(1)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	l.inner.Log(context.Background(), level, msg, args...)
}

// With returns a Logger that always attaches the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}
