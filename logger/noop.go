package logger

// NoopLogger is a Logger that discards every record. It is handy in tests
// that exercise failure paths where log output is just noise.
type NoopLogger struct {
	level Level
}

var _ Logger = (*NoopLogger)(nil)

// NewNoop creates a Logger that discards all output.
func NewNoop() *NoopLogger {
	return &NoopLogger{level: ErrorLevel}
}

func (l *NoopLogger) Debug(msg string, keysAndValues ...any) {}
func (l *NoopLogger) Info(msg string, keysAndValues ...any)  {}
func (l *NoopLogger) Warn(msg string, keysAndValues ...any)  {}
func (l *NoopLogger) Error(msg string, keysAndValues ...any) {}
func (l *NoopLogger) Fatal(msg string, keysAndValues ...any) {}

func (l *NoopLogger) With(keyValues ...any) Logger { return l }

func (l *NoopLogger) Level() Level { return l.level }

func (l *NoopLogger) SetLevel(level Level) { l.level = level }
