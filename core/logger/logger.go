// Package logger defines the logging contract of the simulator packages.
// Engines and the scheduler accept a Logger and treat nil as "discard"; the
// zerolog implementation lives in infra/logger.
package logger

// Fields are structured key/value pairs attached to a log line.
type Fields = map[string]any

// Logger is implemented by infra/logger.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs msg with structured fields, used for run summaries.
	Debugw(msg string, fields Fields)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
