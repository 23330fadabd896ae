package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/prosumer/core/logger"
)

// Output formats accepted by SetFormat.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// format holds the format chosen by SetFormat; empty means "detect from
// APP_ENV", where APP_ENV=dev selects the console writer.
var format atomic.Value

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// SetLevel sets the global minimum level from its textual name ("debug",
// "info", "warn", "error"). Unknown or empty names leave the level unchanged.
func SetLevel(name string) {
	if name == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetFormat selects JSON or console output for loggers created afterwards.
// An empty name restores the APP_ENV detection.
func SetFormat(name string) error {
	name = strings.ToLower(name)
	switch name {
	case "", FormatJSON, FormatConsole:
		format.Store(name)
		return nil
	default:
		return fmt.Errorf("unknown log format %q", name)
	}
}

func console() bool {
	f, _ := format.Load().(string)
	if f == "" {
		return strings.EqualFold(os.Getenv("APP_ENV"), "dev")
	}
	return f == FormatConsole
}

// NewZerologLogger writes to stderr; stdout is reserved for simulation
// output such as flows CSV.
func NewZerologLogger(component string) Logger {
	return NewZerologLoggerTo(os.Stderr, component)
}

// NewZerologLoggerTo is NewZerologLogger writing to w.
func NewZerologLoggerTo(w io.Writer, component string) Logger {
	if console() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields corelogger.Fields) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
