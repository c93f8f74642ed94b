package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, NoticeLevel, ParseLevel(" NOTICE "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, InfoLevel, ParseLevel("whatever"))
}

func TestStdLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, false, NoticeLevel)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	assert.Empty(t, buf.String())

	l.Notice("notice %d", 3)
	l.Error("error %d", 4)
	assert.Contains(t, buf.String(), "[NOTICE] notice 3")
	assert.Contains(t, buf.String(), "[ERROR]  error 4")
}

func TestStdLoggerPhasePrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, false, DebugLevel)

	l.InfoWithPhase("commit", "submitted %s", "0xabc")
	assert.Contains(t, buf.String(), "[INFO]   [COMMIT]   submitted 0xabc")

	buf.Reset()
	l.ErrorWithPhase("custom", "boom")
	assert.Contains(t, buf.String(), "[CUSTOM] boom")
}
