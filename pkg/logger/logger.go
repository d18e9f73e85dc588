// Package logger provides the run-wide file logger.
// Output is structured (zerolog) and goes to a single log file per run.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger = zerolog.Nop()
	logFile      *os.File
	verbose      bool
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = newLogger(f)
	return nil
}

// InitWriter points the logger at an arbitrary writer (tests, console mode).
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = newLogger(w)
}

func newLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables debug level output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()

	verbose = v
	if v {
		globalLogger = globalLogger.Level(zerolog.DebugLevel)
	} else {
		globalLogger = globalLogger.Level(zerolog.InfoLevel)
	}
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = zerolog.Nop()
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Info().Msgf(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Debug().Msgf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Error().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Warn().Msgf(format, v...)
}

// With returns a child logger carrying the given component name, for packages
// that want structured fields instead of printf formatting.
func With(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With().Str("component", component).Logger()
}

// GetWriter returns the underlying writer for use by child processes.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
