// Package logging provides a tiny abstraction over structured logging so
// downstream code can depend on a minimal interface (Logger) while allowing
// users to plug any structured logger. The production implementation is backed
// by zerolog; a NoOpLogger is provided for tests and embedded use.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Logger defines the minimal logging interface used throughout chatmesh.
// Args are alternating key/value pairs, mirroring slog-style calling
// conventions.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// ZerologAdapter wraps a zerolog.Logger to implement the Logger interface.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a Logger from an existing zerolog.Logger.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// Config controls construction of the default zerolog-backed logger.
type Config struct {
	Debug        bool
	PrettyFormat bool
}

// New builds a ZerologAdapter writing to stdout. PrettyFormat switches to the
// human-readable console writer; Debug lowers the level threshold.
func New(cfg Config) *ZerologAdapter {
	var logger zerolog.Logger
	if cfg.PrettyFormat {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	return &ZerologAdapter{logger: logger}
}

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, args ...any) { z.emit(z.logger.Debug(), msg, args) }

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, args ...any) { z.emit(z.logger.Info(), msg, args) }

// Warn logs a warning message.
func (z *ZerologAdapter) Warn(msg string, args ...any) { z.emit(z.logger.Warn(), msg, args) }

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, args ...any) { z.emit(z.logger.Error(), msg, args) }

// emit attaches alternating key/value args as zerolog fields. A trailing key
// without a value is recorded under "extra" rather than dropped.
func (z *ZerologAdapter) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		ev = ev.Any(key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = ev.Any("extra", args[len(args)-1])
	}
	ev.Msg(msg)
}
