// Package logging provides subsystem-tagged structured logging for vvtest.
//
// It wraps log/slog and supports two modes: a plain CLI mode that writes
// text-formatted records to an io.Writer, and a "live" mode that instead
// feeds a buffered channel of LogEntry values for a progress spinner or
// interactive console to drain and render. Exactly one mode is active for
// the lifetime of a process; InitForCLI or InitForLive must be called once
// at startup before any other package logs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel defines the severity of a log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy fmt.Stringer.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntry is a structured record passed to a live-mode consumer.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Subsystem string
	Message   string
	Err       error
}

var (
	defaultLogger *slog.Logger
	liveChannel   chan LogEntry
	isLiveMode    bool
)

const liveChannelBufferSize = 2048

// InitForCLI initializes plain text logging to output, filtering below level.
func InitForCLI(level LogLevel, output io.Writer) {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
	isLiveMode = false
}

// InitForLive initializes channel-based logging for a spinner or interactive
// console; log calls never write directly to stdout in this mode so they
// don't corrupt the consumer's rendering. Returns the channel to drain.
func InitForLive(bufferSize int) <-chan LogEntry {
	if bufferSize <= 0 {
		bufferSize = liveChannelBufferSize
	}
	liveChannel = make(chan LogEntry, bufferSize)
	isLiveMode = true
	return liveChannel
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	if isLiveMode {
		if liveChannel == nil {
			fmt.Fprintf(os.Stderr, "[LOGGING] live mode active but channel is nil: %s\n", msg)
			return
		}
		entry := LogEntry{Timestamp: time.Now(), Level: level, Subsystem: subsystem, Message: msg, Err: err}
		select {
		case liveChannel <- entry:
		default:
			fmt.Fprintf(os.Stderr, "[LOGGING] live channel full, dropping: %s\n", msg)
		}
		return
	}

	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[LOGGING] logger not initialized: %s\n", msg)
		return
	}

	var attrs []slog.Attr
	attrs = append(attrs, slog.String("subsystem", subsystem))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// Debug logs a debug message for subsystem.
func Debug(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message for subsystem.
func Info(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message for subsystem.
func Warn(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message for subsystem.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

var seenErrors = make(map[string]bool)

// ErrorOnce logs an error for subsystem only the first time this exact
// error string is seen for the lifetime of the process. Per the error
// handling design, no collaborator exception may flood the log with
// repeated identical tracebacks.
func ErrorOnce(subsystem string, err error, messageFmt string, args ...interface{}) {
	if err == nil {
		return
	}
	key := subsystem + ":" + err.Error()
	if seenErrors[key] {
		return
	}
	seenErrors[key] = true
	Error(subsystem, err, messageFmt, args...)
}
