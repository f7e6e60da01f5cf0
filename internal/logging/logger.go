// Package logging builds the component logger. The terminal belongs to the
// display, so records go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options describes logger construction parameters.
type Options struct {
	File   string // empty discards every record
	Level  string
	Format string // text or json
	Debug  bool   // forces debug level
}

// New constructs a slog logger and the function that closes its output.
func New(opts Options) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	level := parseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	path := strings.TrimSpace(opts.File)
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOpts)), noop, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, noop, fmt.Errorf("ensure log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open log file: %w", err)
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		handler = slog.NewJSONHandler(f, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(f, handlerOpts)
	default:
		f.Close()
		return nil, noop, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	return slog.New(handler), f.Close, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
