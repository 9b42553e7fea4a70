// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the process slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// ParseLevel maps debug|info|warn|error onto slog levels. An empty string
// yields warn.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", level)
	}
}

// Verbosity lowers base by one step per -v, down to debug.
func Verbosity(base slog.Level, count int) slog.Level {
	level := base
	for i := 0; i < count && level > slog.LevelDebug; i++ {
		level -= 4
	}
	if level < slog.LevelDebug {
		level = slog.LevelDebug
	}
	return level
}

// New returns a logger writing to w. Terminals get the charm console handler
// without timestamps, anything else gets JSON lines.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	if isTerminal(w) {
		handler := log.NewWithOptions(w, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: false,
			Prefix:          "ask",
		})
		return slog.New(handler)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard is a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
