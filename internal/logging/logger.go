// Package logging writes the debug log to a file; the TUI owns the terminal
// so nothing is logged to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the global logger instance
	Logger = log.New(io.Discard)

	// logFile is the file handle for the log file
	logFile *os.File
)

// Init opens path for appending and points Logger at it. An empty path
// leaves logging disabled.
func Init(path, level string) error {
	if path == "" {
		return nil
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	Logger = New(f, lvl)
	Logger.Info("peek started", "pid", os.Getpid())
	return nil
}

// New builds a logger writing to w in the same format Init uses.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// ParseLevel accepts debug, info, warn and error. Blank means info.
func ParseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Close closes the log file
func Close() {
	if logFile == nil {
		return
	}
	Logger.Info("peek shutting down")
	logFile.Close()
	logFile = nil
	Logger = log.New(io.Discard)
}

// WithPrefix returns a logger with a prefix
func WithPrefix(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}
