// Package logger provides a small leveled logger shared by the SDK and the
// terminal client.
//
// It wraps the standard library logger with a global verbosity threshold so
// packages can emit trace/debug output without gating every call site on a
// debug flag.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the verbosity threshold used by the logger.
//
// Lower values are more verbose.
type Level int32

const (
	// LevelTrace enables extremely verbose logs (wire frames, FSM inputs).
	LevelTrace Level = iota
	// LevelDebug enables verbose logs intended for debugging.
	LevelDebug
	// LevelInfo enables informational logs (default).
	LevelInfo
	// LevelWarn enables only warnings and errors.
	LevelWarn
	// LevelError enables only error logs.
	LevelError
)

var (
	level  atomic.Int32
	std    = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	levels = map[string]Level{
		"trace": LevelTrace,
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
	}
)

func init() {
	level.Store(int32(LevelInfo))
}

// ParseLevel parses a log level string into a Level.
func ParseLevel(raw string) (Level, error) {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return lvl, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", raw)
}

// SetLevel sets the global log level threshold.
func SetLevel(lvl Level) {
	level.Store(int32(lvl))
}

// GetLevel returns the current global log level threshold.
func GetLevel() Level {
	return Level(level.Load())
}

// SetOutput replaces the writer used by the global logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetFlags sets the underlying log flags used for all output.
func SetFlags(flags int) {
	std.SetFlags(flags)
}

func logf(lvl Level, prefix, format string, args ...any) {
	if lvl < GetLevel() {
		return
	}
	std.Printf(prefix+format, args...)
}

// Tracef logs at trace level.
func Tracef(format string, args ...any) { logf(LevelTrace, "TRC ", format, args...) }

// Debugf logs at debug level.
func Debugf(format string, args ...any) { logf(LevelDebug, "DBG ", format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { logf(LevelInfo, "INF ", format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...any) { logf(LevelWarn, "WRN ", format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { logf(LevelError, "ERR ", format, args...) }
