package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type config struct {
	output    io.Writer
	level     slog.Level
	format    Format
	addSource bool
}

// New builds a slog logger writing to stdout unless overridden.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		output: os.Stdout,
		level:  slog.LevelInfo,
		format: FormatJSON,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource: cfg.addSource,
		Level:     cfg.level,
	}

	var handler slog.Handler

	switch cfg.format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}

	return slog.New(handler)
}

type Option func(c *config)

func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

func WithAddSource(addSource bool) Option {
	return func(c *config) {
		c.addSource = addSource
	}
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
