// Package logger builds the hclog logger shared across the scanner.
package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates a named hclog.Logger. The level is taken from the
// AURA_LOG_LEVEL environment variable first, then from the given
// configured level name.
func NewLogger(name, configuredLevel string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      os.Stderr,
		Level:       determineLogLevel(configuredLevel),
	})
}

func determineLogLevel(configuredLevel string) hclog.Level {
	if env := os.Getenv("AURA_LOG_LEVEL"); env != "" {
		return parseLogLevel(strings.ToUpper(env))
	}
	return parseLogLevel(strings.ToUpper(configuredLevel))
}

// parseLogLevel converts a level name to hclog.Level, defaulting to WARN
// for anything unrecognized.
func parseLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Warn
	}
}
