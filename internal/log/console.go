package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleLogger is a leveled, human-readable standard output logging engine backed by zerolog.
type ConsoleLogger struct {
	level   Level
	backend zerolog.Logger
}

// NewConsoleLogger creates a logger limited to the specified level. Only log messages that are at
// least as severe as the specified level are logged.
func NewConsoleLogger(level Level) Logger {
	return NewWriterLogger(os.Stdout, level)
}

// NewWriterLogger creates a console-formatted logger that writes to an arbitrary destination.
func NewWriterLogger(out io.Writer, level Level) Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.DateTime,
		NoColor:    out != os.Stdout,
	}

	backend := zerolog.New(output).
		Level(level.zerologLevel()).
		With().
		Timestamp().
		Str("app", "ftlbridge").
		Logger()

	return &ConsoleLogger{level: level, backend: backend}
}

// Debug logs a debug message, if permitted by the current level.
func (l *ConsoleLogger) Debug(format string, v ...interface{}) {
	l.backend.Debug().Msgf(format, v...)
}

// Info logs an informational message, if permitted by the current level.
func (l *ConsoleLogger) Info(format string, v ...interface{}) {
	l.backend.Info().Msgf(format, v...)
}

// Warn logs a warning message, if permitted by the current level.
func (l *ConsoleLogger) Warn(format string, v ...interface{}) {
	l.backend.Warn().Msgf(format, v...)
}

// Error logs an error message, if permitted by the current level.
func (l *ConsoleLogger) Error(format string, v ...interface{}) {
	l.backend.Error().Msgf(format, v...)
}

// Level reads the current logging level.
func (l *ConsoleLogger) Level() Level {
	return l.level
}
