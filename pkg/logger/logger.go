package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to InfoLevel
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "notice":
		return NoticeLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var phasePrefixes = map[string]string{
	"":         "",
	"idle":     "[IDLE]     ",
	"commit":   "[COMMIT]   ",
	"reveal":   "[REVEAL]   ",
	"executed": "[EXECUTED] ",
	"expired":  "[EXPIRED]  ",
	"server":   "[SERVER]   ",
}

var colors = map[string]color.Attribute{
	"":         color.FgWhite,
	"idle":     color.FgWhite,
	"commit":   color.FgYellow,
	"reveal":   color.FgHiBlue,
	"executed": color.FgHiGreen,
	"expired":  color.FgRed,
	"server":   color.FgMagenta,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithPhase(phase string, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithPhase(phase string, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithPhase(phase string, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithPhase(phase string, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) InfoWithPhase(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) ErrorWithPhase(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) DebugWithPhase(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) NoticeWithPhase(_ string, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	out            *log.Logger
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return NewStdLoggerWithWriter(os.Stderr, enableColoring, level)
}

// NewStdLoggerWithWriter creates a StdLogger writing to w
func NewStdLoggerWithWriter(w io.Writer, enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
		out:            log.New(w, "", log.LstdFlags),
	}
}

// formatMessage formats the log message with the appropriate log level, phase prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, phase string, format string) string {
	phasePrefix, ok := phasePrefixes[phase]
	if !ok {
		phasePrefix = "[" + strings.ToUpper(phase) + "] "
	}
	if l.enableColoring && phasePrefix != "" {
		attr, ok := colors[phase]
		if !ok {
			attr = color.FgWhite
		}
		phasePrefix = color.New(attr).Sprint(phasePrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + phasePrefix + format
}

func (l *StdLogger) logf(level Level, phase string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		l.out.Printf(l.formatMessage(level, phase, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, "", format, args...)
}

func (l *StdLogger) InfoWithPhase(phase string, format string, args ...interface{}) {
	l.logf(InfoLevel, phase, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, "", format, args...)
}

func (l *StdLogger) ErrorWithPhase(phase string, format string, args ...interface{}) {
	l.logf(ErrorLevel, phase, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, "", format, args...)
}

func (l *StdLogger) DebugWithPhase(phase string, format string, args ...interface{}) {
	l.logf(DebugLevel, phase, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, "", format, args...)
}

func (l *StdLogger) NoticeWithPhase(phase string, format string, args ...interface{}) {
	l.logf(NoticeLevel, phase, format, args...)
}
