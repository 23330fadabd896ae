package logger

import corelogger "github.com/kilianp07/prosumer/core/logger"

// Logger is the core logging contract.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests and library callers passing a nil
// logger end up with it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)            {}
func (NopLogger) Debugw(string, corelogger.Fields) {}
func (NopLogger) Infof(string, ...any)             {}
func (NopLogger) Warnf(string, ...any)             {}
func (NopLogger) Errorf(string, ...any)            {}

// New returns the logger of a component ("dispatch", "scheduler", "service",
// ...). Every line carries the component name.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
