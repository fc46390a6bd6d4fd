// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "inventory-expense"

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Log = newConsole(os.Stdout)
}

func newConsole(out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Caller().
		Logger()
}

func newJSON(out io.Writer) zerolog.Logger {
	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// ParseLevel maps LOG_LEVEL values to zerolog levels. Unknown or empty values
// mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel sets the global log level.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// Configure applies LOG_LEVEL and LOG_FORMAT. Format "json" writes one JSON
// object per line to stdout; anything else keeps the console writer.
func Configure(level, format string) {
	configure(os.Stdout, level, format)
}

func configure(out io.Writer, level, format string) {
	SetLevel(level)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		Log = newJSON(out)
		return
	}
	Log = newConsole(out)
}
