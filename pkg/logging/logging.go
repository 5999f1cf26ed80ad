package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
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

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntry is the structured log entry delivered to channel consumers
// (e.g. an attached dashboard process).
type LogEntry struct {
	Timestamp  time.Time
	Level      LogLevel
	Subsystem  string
	Message    string
	Err        error
	Attributes []slog.Attr
}

var (
	defaultLogger *slog.Logger
	logChannel    chan LogEntry
	isChannelMode bool
)

const channelBufferSize = 2048

// Init initializes the logger for either channel or CLI mode.
// This should be called once at application startup. In channel mode log
// entries are delivered on the returned channel instead of being written to
// the output writer; CLI mode returns nil.
func Init(mode string, level LogLevel, output io.Writer, bufferSize int) <-chan LogEntry {
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}

	var handler slog.Handler
	if mode == "channel" {
		isChannelMode = true
		if bufferSize <= 0 {
			bufferSize = channelBufferSize
		}
		logChannel = make(chan LogEntry, bufferSize)
		handler = slog.NewTextHandler(io.Discard, opts)
	} else { // cli mode
		isChannelMode = false
		handler = slog.NewTextHandler(output, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	if isChannelMode {
		return logChannel
	}
	return nil
}

// InitForChannel initializes the logging system for channel mode. The
// returned channel carries every entry regardless of filterLevel; the
// consumer applies its own display filtering.
func InitForChannel(filterLevel LogLevel) <-chan LogEntry {
	return Init("channel", filterLevel, io.Discard, channelBufferSize)
}

// InitForCLI initializes the logging system for CLI mode.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	Init("cli", filterLevel, output, 0)
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	if !isChannelMode {
		if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
			return
		}
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	now := time.Now()

	if isChannelMode {
		entry := LogEntry{
			Timestamp: now,
			Level:     level,
			Subsystem: subsystem,
			Message:   msg,
			Err:       err,
		}
		select {
		case logChannel <- entry:
		default:
			// Channel full or closed; fall back to stderr so the entry is not lost silently.
			fmt.Fprintf(os.Stderr, "[LOGGING_CRITICAL] log channel full/closed. Dropping: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
		}
		return
	}

	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[LOGGING_ERROR] Logger not initialized. Log: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
		return
	}

	var slogAttrs []slog.Attr
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// CloseChannel closes the log channel. Should be called on shutdown after
// the consumer has detached.
func CloseChannel() {
	if logChannel != nil {
		close(logChannel)
		logChannel = nil
	}
}
