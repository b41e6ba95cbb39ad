// Package logging provides the one logging discipline used across the
// engine: a thin wrapper over go-kit's structured logger, named and leveled
// the way the rest of the stack's operator tooling expects.
package logging

import (
	"os"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

var (
	mu      sync.Mutex
	base    = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	loggers = map[string]*Logger{}
)

// Logger is a named, leveled logger.
type Logger struct {
	name string
	kit  log.Logger
}

// GetLogger returns the (cached) logger for the given module name.
func GetLogger(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := &Logger{
		name: name,
		kit:  log.With(base, "module", name, "ts", log.DefaultTimestampUTC),
	}
	loggers[name] = l
	return l
}

func logAt(lg log.Logger, msg string, keyvals ...interface{}) {
	kv := append([]interface{}{"msg", msg}, keyvals...)
	_ = lg.Log(kv...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) { logAt(level.Debug(l.kit), msg, keyvals...) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) { logAt(level.Info(l.kit), msg, keyvals...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) { logAt(level.Warn(l.kit), msg, keyvals...) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	logAt(level.Error(l.kit), msg, keyvals...)
}

// With returns a child logger with additional static key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{name: l.name, kit: log.With(l.kit, keyvals...)}
}
