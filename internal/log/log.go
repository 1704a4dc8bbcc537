// Package log provides structured logging for go-drowsy.
// It wraps slog with defaults suited to an always-on in-vehicle process.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
	level  = new(slog.LevelVar)
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init sets the global log level. It may be called again later, e.g. once
// flags are parsed. Output is JSON when GO_ENV=production or
// LOG_FORMAT=json, text otherwise.
func Init(lvl string) {
	level.Set(ParseLevel(lvl))
	once.Do(setup)
}

func setup() {
	json := os.Getenv("GO_ENV") == "production" || os.Getenv("LOG_FORMAT") == "json"
	logger = newLogger(os.Stdout, level, json)
	slog.SetDefault(logger)
}

func newLogger(w io.Writer, lvl slog.Leveler, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L returns the global logger instance.
func L() *slog.Logger {
	once.Do(setup)
	return logger
}

// Component returns a logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
