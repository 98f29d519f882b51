// Package util provides the pterm-backed logger shared by every component.
package util

import (
	"fmt"
	"os"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "15:04:05.000"
	pterm.DefaultLogger.MaxWidth = 1000
	// stdout carries the video stream.
	pterm.DefaultLogger.Writer = os.Stderr
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// EnableTrace configures the logger to show everything, including pion internals.
func EnableTrace() {
	pterm.DefaultLogger.Level = pterm.LogLevelTrace
}

// LoggerFactory hands out scoped loggers that print through pterm. It
// satisfies logging.LoggerFactory so pion's own logs share the same output.
type LoggerFactory struct{}

// NewLoggerFactory returns the process logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// NewLogger returns a logger that tags every line with [scope].
func (f *LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &Logger{scope: scope}
}

// Logger is a scoped pterm logger.
type Logger struct {
	scope string
}

func (l *Logger) line(msg string) string {
	return "[" + l.scope + "] " + msg
}

func (l *Logger) Trace(msg string) { pterm.DefaultLogger.Trace(l.line(msg)) }
func (l *Logger) Tracef(format string, args ...interface{}) {
	pterm.DefaultLogger.Trace(l.line(fmt.Sprintf(format, args...)))
}

func (l *Logger) Debug(msg string) { pterm.DefaultLogger.Debug(l.line(msg)) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(l.line(fmt.Sprintf(format, args...)))
}

func (l *Logger) Info(msg string) { pterm.DefaultLogger.Info(l.line(msg)) }
func (l *Logger) Infof(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(l.line(fmt.Sprintf(format, args...)))
}

func (l *Logger) Warn(msg string) { pterm.DefaultLogger.Warn(l.line(msg)) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(l.line(fmt.Sprintf(format, args...)))
}

func (l *Logger) Error(msg string) { pterm.DefaultLogger.Error(l.line(msg)) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(l.line(fmt.Sprintf(format, args...)))
}
