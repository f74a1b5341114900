// Package logging builds the structured logger shared by the session, backend and UI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every log line.
const Prefix = "taskman"

// Options configure New.
type Options struct {
	// Level is a level name ("debug", "info", "warn", "error").
	// Empty means info.
	Level string

	// Debug forces debug level regardless of Level.
	Debug bool

	// Timestamps adds a timestamp to each line. Useful when writing to a file.
	Timestamps bool
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: opts.Timestamps,
		Prefix:          Prefix,
	})
	logger.SetLevel(ParseLevel(opts.Level))
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OpenFile opens path for appending log lines with mode 0600.
// The caller closes the returned file.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
