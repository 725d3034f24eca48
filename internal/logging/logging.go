// Package logging builds the prefix-scoped loggers used across recall.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to stderr with the given prefix and a
// level parsed from the config string. Unknown levels fall back to
// info.
func New(prefix, level string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		Level:           ParseLevel(level),
	})
}

// ParseLevel maps a config level string onto a log level.
func ParseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
