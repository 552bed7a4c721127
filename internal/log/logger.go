// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
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
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false // Default to Info on parse error
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// --- Global Logger State ---

// currentLevel holds the current global log level atomically.
var currentLevel atomic.Uint32

var (
	backendMu sync.RWMutex
	backend   = newBackend(os.Stderr)
)

func newBackend(w io.Writer) zerolog.Logger {
	if f, ok := w.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: "2006-01-02 15:04:05.000000"}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func init() {
	// Default level at startup. Can be overridden by config.
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output to w. The terminal viewer uses this to
// keep log lines off the screen it draws on.
func SetOutput(w io.Writer) {
	backendMu.Lock()
	backend = newBackend(w)
	backendMu.Unlock()
}

// shouldLog checks if a message at the given level should be logged based on the current global level.
func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func emit(level LogLevel, component, msg string) {
	if level != LevelFatal && !shouldLog(level) {
		return
	}
	backendMu.RLock()
	l := backend
	backendMu.RUnlock()

	ev := l.WithLevel(level.zerolog())
	if component != "" {
		ev = ev.Str("component", component)
	}
	ev.Msg(msg)
	if level == LevelFatal {
		os.Exit(1)
	}
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...interface{}) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, "", fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...interface{}) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, "", fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...interface{}) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, "", fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...interface{}) {
	if shouldLog(LevelError) {
		emit(LevelError, "", fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, "", fmt.Sprintf(format, v...))
}

// --- Functions without formatting (convenience) ---

// Info logs an info message if the level is appropriate.
func Info(v ...interface{}) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, "", fmt.Sprint(v...))
	}
}

// Error logs an error message if the level is appropriate.
func Error(v ...interface{}) {
	if shouldLog(LevelError) {
		emit(LevelError, "", fmt.Sprint(v...))
	}
}

// Fatal logs a fatal message and exits the application.
func Fatal(v ...interface{}) {
	emit(LevelFatal, "", fmt.Sprint(v...))
}
