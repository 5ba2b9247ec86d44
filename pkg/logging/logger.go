// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// File, when set, sends JSON logs to a size-rotated file instead of Output.
	File string

	// MaxSizeMB is the size at which File is rotated (default: 50).
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept (default: 3).
	MaxBackups int
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Pretty:     false,
		Output:     os.Stderr,
		MaxSizeMB:  50,
		MaxBackups: 3,
	}
}

// Setup configures the global zerolog logger.
// The returned closer releases the log file, if any.
func Setup(cfg Config) (zerolog.Logger, io.Closer) {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	w, closer := writer(cfg)
	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger

	return logger, closer
}

// writer picks the log sink. File output is always JSON.
func writer(cfg Config) (io.Writer, io.Closer) {
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			Compress:   true,
		}
		return file, file
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}, nopCloser{}
	}
	return out, nopCloser{}
}

// zerologLevel maps a LogLevel to zerolog. Unknown levels fall back to info.
func zerologLevel(level LogLevel) zerolog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn, "warning":
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Every OData request (url, entity_set, status, bytes, duration)
//   - Pages fetched during a walk
//   - Rate limiter waits above 100ms
//
// Info: Normal operation events
//   - Paging progress every 50 pages
//   - CLI command summaries
//
// Warn: Warning conditions that don't prevent operation
//   - Non-2xx responses
//   - Page limit reached with a next link pending
//
// Error: Error conditions requiring attention
//   - Transport failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package ("odata-client", "odata-fetch", ...)
//   - entity_set: OData entity set
//   - url: request URL
//   - status: HTTP status code
//   - duration: request duration
//   - walk_id: correlates the pages of one paged fetch
//   - limiter: rate limiter name
