// Package logger provides the process-wide leveled logger, backed by zerolog.
//
// Messages go to a human-readable console writer (stderr by default) and, when a
// log file is configured, as JSON lines to that file. Component loggers share the
// same outputs and level, so changing either takes effect for loggers that were
// created earlier.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the minimum severity that gets written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
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

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// sink fans zerolog events out to the console and the optional log file,
// dropping anything below the configured level.
type sink struct {
	mu      sync.Mutex
	level   Level
	console io.Writer
	file    *os.File
}

func newConsole(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
}

func (s *sink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *sink) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l != zerolog.NoLevel && l < s.level.zerolog() {
		return len(p), nil
	}

	if _, err := s.console.Write(p); err != nil {
		return 0, err
	}
	if s.file != nil {
		if _, err := s.file.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

var (
	out = &sink{level: LevelInfo, console: newConsole(os.Stderr)}

	base = zerolog.New(out).With().Timestamp().Logger()
)

// SetLevel sets the minimum log level.
func SetLevel(level Level) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.level = level
}

// GetLevel returns the current log level.
func GetLevel() Level {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.level
}

// SetOutput sets the console writer. This is primarily useful for testing.
func SetOutput(w io.Writer) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.console = newConsole(w)
}

// SetLogFile opens a log file that receives every message as a JSON line
// in addition to the console output.
func SetLogFile(path string) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file != nil {
		_ = out.file.Close()
		out.file = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	out.file = f
	return nil
}

// Close releases the log file, if any. Console output is unaffected.
func Close() {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file != nil {
		_ = out.file.Close()
		out.file = nil
	}
}

// Component returns a structured logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("cmp", name).Logger()
}

// Debug logs a printf-style message at debug level.
func Debug(format string, args ...any) {
	base.Debug().Msgf(format, args...)
}

// Info logs a printf-style message at info level.
func Info(format string, args ...any) {
	base.Info().Msgf(format, args...)
}

// Warn logs a printf-style message at warn level.
func Warn(format string, args ...any) {
	base.Warn().Msgf(format, args...)
}

// Error logs a printf-style message at error level.
func Error(format string, args ...any) {
	base.Error().Msgf(format, args...)
}

// ParseLevel maps a config or flag value such as "warn" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
}
