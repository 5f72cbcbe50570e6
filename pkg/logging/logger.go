// Package logging provides structured logging configuration using zerolog
// and the HTTP request logging / panic recovery middleware.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
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

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service is attached to every entry when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Output:  os.Stderr,
		Service: "order-export",
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch ParseLevel(string(level)) {
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

// NewLogger creates a sub-logger of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ParseLevel converts a LOG_LEVEL setting into a LogLevel. Unknown
// values fall back to info.
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

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Per-page pagination flow (page, page_items, total)
//   - Individual upstream attempts and cache hits
//   - Per-order enrichment results, worker completion
//
// Info: Normal operation events
//   - Export run start and completion (orders, rows, duration)
//   - Enrichment batch summary
//   - Server startup/shutdown, HTTP requests
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts
//   - Partial pagination (results truncated by an upstream failure)
//   - Orders whose enrichment failed
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Upstream requests that exhausted every attempt
//   - Failed or panicking export runs
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - run_id: export run identifier
//   - store: store key
//   - resource / path: upstream resource
//   - page: pagination page number
//   - order_id: upstream order id
//   - attempt: 1-based attempt number
//   - error_class: client, server, network, unexpected
