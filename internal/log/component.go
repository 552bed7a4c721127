// SPDX-License-Identifier: MIT
package log

import "fmt"

// Sink receives a single (severity, message) pair. It is the error-reporting
// capability handed to the device and display components at construction.
type Sink func(level LogLevel, msg string)

// Logger is a component-scoped logger. The zero value and a nil *Logger
// both discard everything, so components can hold one unconditionally.
type Logger struct {
	component string
	sink      Sink
}

// New returns a Logger that writes through the global backend, tagging every
// line with the component name.
func New(component string) *Logger {
	return &Logger{
		component: component,
		sink: func(level LogLevel, msg string) {
			emit(level, component, msg)
		},
	}
}

// NewWithSink returns a Logger that forwards to sink instead of the global
// backend. Level filtering is left to the sink.
func NewWithSink(component string, sink Sink) *Logger {
	return &Logger{component: component, sink: sink}
}

// Component returns the component name the logger was created with.
func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

// Log reports msg at the given level.
func (l *Logger) Log(level LogLevel, msg string) {
	if l == nil || l.sink == nil {
		return
	}
	l.sink(level, msg)
}

func (l *Logger) logf(level LogLevel, format string, v ...interface{}) {
	if l == nil || l.sink == nil {
		return
	}
	l.sink(level, fmt.Sprintf(format, v...))
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(LevelDebug, format, v...) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, v ...interface{}) { l.logf(LevelInfo, format, v...) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.logf(LevelWarn, format, v...) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(LevelError, format, v...) }
