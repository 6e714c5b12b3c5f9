package log

// NoopLogger discards every message. It is used by tests and by components constructed without a
// logger.
type NoopLogger struct{}

// NewNoopLogger creates a logger that discards all output.
func NewNoopLogger() Logger {
	return NoopLogger{}
}

// Debug noops.
func (NoopLogger) Debug(format string, v ...interface{}) {}

// Info noops.
func (NoopLogger) Info(format string, v ...interface{}) {}

// Warn noops.
func (NoopLogger) Warn(format string, v ...interface{}) {}

// Error noops.
func (NoopLogger) Error(format string, v ...interface{}) {}

// Level reports Error, the least verbose level.
func (NoopLogger) Level() Level {
	return Error
}
