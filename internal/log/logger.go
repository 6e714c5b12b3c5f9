// Package log provides the leveled logger used across ftlbridge. Messages are printf-style and
// conventionally prefixed with the emitting component, e.g. "engine_client: retrying: cmd=stats".
package log

// Logger defines a common interface shared by logging engines.
type Logger interface {
	// Debug logs a message tracing engine round trips and pool behavior.
	Debug(format string, v ...interface{})

	// Info logs an informational message.
	Info(format string, v ...interface{})

	// Warn logs a recoverable divergence, such as a retried engine command.
	Warn(format string, v ...interface{})

	// Error logs a failure that reached a caller.
	Error(format string, v ...interface{})

	// Level returns the currently configured logging level.
	Level() Level
}
