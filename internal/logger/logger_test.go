package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase(buf *bytes.Buffer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	l.SetLevel(level)
	return l
}

func TestLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		level     logrus.Level
		expectLog bool
	}{
		{"logs at debug level", logrus.DebugLevel, true},
		{"suppressed at info level", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(newTestBase(&buf, tt.level), "[test]")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(newTestBase(&buf, logrus.DebugLevel), "[lvl]")

	l.Info("info message %d", 42)
	l.Warn("warning message")
	l.Error("error message")

	out := buf.String()
	assert.Contains(t, out, "level=info msg=[lvl] info message 42")
	assert.Contains(t, out, "level=warning msg=[lvl] warning message")
	assert.Contains(t, out, "level=error msg=[lvl] error message")
}

func TestLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(newTestBase(&buf, logrus.InfoLevel), "")
	l.Info("bare")
	assert.Contains(t, buf.String(), "msg=bare")
}

func TestSetLevel(t *testing.T) {
	original := base.GetLevel()
	defer base.SetLevel(original)

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, base.GetLevel())

	assert.Error(t, SetLevel("chatty"))
}

func TestNoopLogger(t *testing.T) {
	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	msgs := l.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug msg"}, msgs[0])
	assert.Equal(t, LogMessage{Level: "error", Message: "error msg"}, msgs[3])

	assert.True(t, l.HasLevel("warn"))
	l.Clear()
	assert.False(t, l.HasLevel("warn"))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("host-%d", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, l.Snapshot(), 20)
}

func TestDefault(t *testing.T) {
	original := defaultLogger
	defer func() { defaultLogger = original }()

	assert.NotNil(t, Default())

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Equal(t, buf, Default())
}

func TestLogger_FormatStrings(t *testing.T) {
	var buf bytes.Buffer
	l := New(newTestBase(&buf, logrus.InfoLevel), "[fmt]")

	l.Info("int: %d, string: %s, float: %.2f", 42, "hello", 3.14159)

	output := buf.String()
	assert.True(t, strings.Contains(output, "int: 42"))
	assert.True(t, strings.Contains(output, "string: hello"))
	assert.True(t, strings.Contains(output, "float: 3.14"))
}
