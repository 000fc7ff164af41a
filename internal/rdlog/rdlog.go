// Package rdlog provides the structured logger the engine and driver log
// through. A nil *Logger is valid and discards everything, so callers
// that don't care about logging can leave it unset.
package rdlog

import "go.uber.org/zap"

// Logger wraps a *zap.SugaredLogger, tolerating a nil receiver so a
// caller that never configured logging doesn't need a nil check at every
// call site.
type Logger struct {
	z *zap.SugaredLogger
}

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return nil
	}
	return &Logger{z: z.Sugar()}
}

// Default returns a development-mode logger, suitable for the CLI and
// for tests that want output on failure.
func Default() *Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil
	}
	return New(z)
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return New(zap.NewNop()) }

func (l *Logger) Errorw(msg string, kv ...interface{}) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Errorw(msg, kv...)
}

func (l *Logger) Warnw(msg string, kv ...interface{}) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Warnw(msg, kv...)
}

func (l *Logger) Infow(msg string, kv ...interface{}) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Infow(msg, kv...)
}

func (l *Logger) Debugw(msg string, kv ...interface{}) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Debugw(msg, kv...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}
