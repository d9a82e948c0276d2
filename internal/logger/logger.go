// Package logger provides the structured, context-propagated logging used
// throughout the Betty runtime. It wraps charmbracelet/log behind a small
// interface so call sites never depend on the concrete logging library.
package logger

import (
	"context"
	"io"
	"os"
	"testing"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel is a wire-friendly log level name.
type LogLevel string

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
)

// ToCharmlogLevel converts a LogLevel into the equivalent charmbracelet/log level.
func (l LogLevel) ToCharmlogLevel() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	case DisabledLevel:
		return charmlog.Level(1000)
	case InfoLevel:
		return charmlog.InfoLevel
	default:
		return charmlog.InfoLevel
	}
}

// Config configures a Logger.
type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns the configuration used by the CLI in normal operation.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stdout,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// TestConfig returns a configuration suitable for unit tests: disabled output.
func TestConfig() *Config {
	return &Config{
		Level:      DisabledLevel,
		Output:     io.Discard,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// IsTestEnvironment reports whether the process is running under `go test`.
func IsTestEnvironment() bool {
	return testing.Testing()
}

// Logger is the logging contract used across the Betty runtime.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

// NewLogger builds a Logger from the given Config. A nil Config defaults to
// DefaultConfig, except under `go test` where TestConfig is used so that
// test runs stay quiet unless a test overrides it explicitly.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		if IsTestEnvironment() {
			cfg = TestConfig()
		} else {
			cfg = DefaultConfig()
		}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.AddSource,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(out, opts)
	l.SetLevel(cfg.Level.ToCharmlogLevel())
	return &charmLogger{l: l}
}

func (c *charmLogger) Debug(msg string, kv ...any) { c.l.Debug(msg, kv...) }
func (c *charmLogger) Info(msg string, kv ...any)  { c.l.Info(msg, kv...) }
func (c *charmLogger) Warn(msg string, kv ...any)  { c.l.Warn(msg, kv...) }
func (c *charmLogger) Error(msg string, kv ...any) { c.l.Error(msg, kv...) }

func (c *charmLogger) With(kv ...any) Logger {
	return &charmLogger{l: c.l.With(kv...)}
}

type ctxKey string

// LoggerCtxKey is the context key a Logger is stored under.
const LoggerCtxKey ctxKey = "betty-logger"

var defaultLogger = NewLogger(nil)

// ContextWithLogger returns a child context carrying l.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext extracts a Logger from ctx, falling back to a process-wide
// default logger when ctx carries none (or an unexpected/nil value).
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
			return l
		}
	}
	return defaultLogger
}
