/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger is minimal logging interface designed to be easily adaptable to any
// logging library.
type Logger interface {
	// Log is invoked with the log level, the log message, and key/value pairs
	// of any relevant log details. The keys are always strings, while the
	// values are unspecified.
	Log(level LogLevel, text string, args ...interface{})
}

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts debug, info, warn(ing) and error, in any case.
// Anything else yields LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// writerLogger writes log messages of at least its level to an io.Writer.
type writerLogger struct {
	level  LogLevel
	output io.Writer
}

// NewWriterLogger returns a Logger writing every message of the given level
// and above to output, one line per message.
func NewWriterLogger(level LogLevel, output io.Writer) Logger {
	return &writerLogger{
		level:  level,
		output: output,
	}
}

func (l *writerLogger) Log(level LogLevel, text string, args ...interface{}) {
	if level < l.level {
		return
	}

	fmt.Fprintf(l.output, "%-5s %s", level, text)
	for i := 0; i < len(args); i++ {
		if i+1 < len(args) {
			switch args[i+1].(type) {
			case []byte:
				// Recorded names are byte strings, print them readable.
				fmt.Fprintf(l.output, " %s=%q", args[i], args[i+1])
			default:
				fmt.Fprintf(l.output, " %s=%v", args[i], args[i+1])
			}
			i++
		} else {
			fmt.Fprintf(l.output, " %s=%%MISSING%%", args[i])
		}
	}
	fmt.Fprintf(l.output, "\n")
}

// The nil logger drops all messages.
type nilLogger struct{}

func (nl *nilLogger) Log(level LogLevel, text string, args ...interface{}) {}

var (
	// ConsoleDebugLogger implements Logger and writes all log messages to stdout.
	ConsoleDebugLogger = NewWriterLogger(LevelDebug, os.Stdout)

	// ConsoleInfoLogger implements Logger and writes all LevelInfo and above log messages to stdout.
	ConsoleInfoLogger = NewWriterLogger(LevelInfo, os.Stdout)

	// ConsoleWarnLogger implements Logger and writes all LevelWarn and above log messages to stdout.
	ConsoleWarnLogger = NewWriterLogger(LevelWarn, os.Stdout)

	// ConsoleErrorLogger implements Logger and writes all LevelError log messages to stdout.
	ConsoleErrorLogger = NewWriterLogger(LevelError, os.Stdout)

	// NilLogger drops all log messages.
	NilLogger Logger = &nilLogger{}
)

// OrNil returns logger, or NilLogger if logger is nil.
func OrNil(logger Logger) Logger {
	if logger == nil {
		return NilLogger
	}
	return logger
}
