// Package logger provides a simple logging interface for nekowatch components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation. The default
// implementation writes through logrus.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// base is the shared logrus instance behind every prefixed logger.
var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("NEKOWATCH_DEBUG") != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetLevel changes the level of the shared logger ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// logrusLogger implements Logger on top of a logrus instance.
type logrusLogger struct {
	log    *logrus.Logger
	prefix string
}

// New creates a logger writing through l. The prefix is prepended to all
// messages (e.g., "[collector]" or "[pool]").
func New(l *logrus.Logger, prefix string) Logger {
	return &logrusLogger{log: l, prefix: prefix}
}

// NewEnvLogger creates a prefixed logger on the shared logrus instance.
// Debug output is enabled when NEKOWATCH_DEBUG is set or the level is raised
// through SetLevel.
func NewEnvLogger(prefix string) Logger {
	return New(base, prefix)
}

func (l *logrusLogger) msg(format string, args []interface{}) string {
	if l.prefix == "" {
		return fmt.Sprintf(format, args...)
	}
	return l.prefix + " " + fmt.Sprintf(format, args...)
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logrus.DebugLevel) {
		l.log.Debug(l.msg(format, args))
	}
}

func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.log.Info(l.msg(format, args))
}

func (l *logrusLogger) Warn(format string, args ...interface{}) {
	l.log.Warn(l.msg(format, args))
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.log.Error(l.msg(format, args))
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing. It is safe for concurrent
// use since collectors log from many goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args) }

// Snapshot returns a copy of the captured messages.
func (l *BufferLogger) Snapshot() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.Messages))
	copy(out, l.Messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Snapshot() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

// defaultLogger is the package-level default logger.
var defaultLogger = NewEnvLogger("")

// Default returns the default logger for the package.
func Default() Logger {
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultLogger = l
}
