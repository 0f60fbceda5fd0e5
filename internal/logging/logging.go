// Package logging builds the slog handlers used by the mcptools command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Format selects the handler flavor.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps a case-insensitive level name to a slog.Level. "trace" is
// accepted as an alias for debug.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", name)
}

// NewHandler returns a charmbracelet/log handler for FormatText or a slog JSON
// handler for FormatJSON. Text output reports timestamps at debug level and
// callers at trace level. A nil writer means stderr.
func NewHandler(format Format, level string, w io.Writer) (slog.Handler, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	trace := strings.EqualFold(strings.TrimSpace(level), "trace")

	switch Format(strings.ToLower(string(format))) {
	case "", FormatText:
		return log.NewWithOptions(w, log.Options{
			Level:           log.Level(lvl),
			ReportTimestamp: lvl <= slog.LevelDebug,
			ReportCaller:    trace,
		}), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     lvl,
			AddSource: trace,
		}), nil
	}
	return nil, fmt.Errorf("logging: unknown format %q", format)
}

// New is NewHandler wrapped in a *slog.Logger.
func New(format Format, level string, w io.Writer) (*slog.Logger, error) {
	h, err := NewHandler(format, level, w)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}
