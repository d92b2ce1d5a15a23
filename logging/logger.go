// Package logging is the SDK's structured logger, a small wrapper over zerolog
// that takes alternating key/value pairs.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with key/value convenience methods
type Logger struct {
	zl zerolog.Logger
}

var (
	global   = Nop()
	globalMu sync.RWMutex
)

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// NewConsole creates a human readable logger, used by the CLI.
func NewConsole(w io.Writer, level zerolog.Level) *Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, level)
}

// NewFromConfig builds a logger from textual settings. Unknown levels fall
// back to info; format "console" or "pretty" selects the console writer.
func NewFromConfig(level, format string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	switch format {
	case "console", "pretty":
		return NewConsole(os.Stderr, lvl)
	default:
		return New(os.Stderr, lvl)
	}
}

// Nop returns a logger that discards everything. It is the SDK default so
// that importing the library never writes to the caller's stdout.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetGlobal replaces the package-level logger
func SetGlobal(l *Logger) {
	if l == nil {
		l = Nop()
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// Global returns the package-level logger
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(fields ...any) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &Logger{zl: ctx.Logger()}
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			e.AnErr(key, v)
		case time.Duration:
			e.Dur(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
