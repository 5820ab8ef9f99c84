package logger

import (
	"fmt"
	"sync"
	"testing"
)

// TestLogger forwards messages to the test log and records them so tests
// can assert on what was logged. Safe for concurrent use.
type TestLogger struct {
	T *testing.T

	mu      sync.Mutex
	entries []string
}

// NewTestLogger creates a new test logger
func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{T: t}
}

func (l *TestLogger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, fmt.Sprintf("[%s] %s", level, msg))
	l.mu.Unlock()
	if l.T != nil {
		l.T.Logf("[%s] %s", level, msg)
	}
}

// Debug logs a debug message
func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg) }

// Info logs an info message
func (l *TestLogger) Info(msg string) { l.log("INFO", msg) }

// Warn logs a warning message
func (l *TestLogger) Warn(msg string) { l.log("WARN", msg) }

// Error logs an error message
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg) }

// Fatal logs a fatal message without exiting
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg) }

// WithField returns the same logger; fields are not recorded
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l
}

// WithFields returns the same logger; fields are not recorded
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l
}

// Entries returns a copy of everything logged so far
func (l *TestLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// NewMockLogger creates a logger for tests that do not assert on log
// output. Use NewTestLogger to also forward messages to the test log.
func NewMockLogger() Logger {
	return NewTestLogger(nil)
}
