package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type config struct {
	level   slog.Leveler
	json    bool
	output  io.Writer
	attrs   []slog.Attr
	options *slog.HandlerOptions
}

// Option configures a logger built by New.
type Option func(*config)

// New creates a slog.Logger. Without options it writes text records at info level to stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := cfg.options
	if hopts == nil {
		hopts = &slog.HandlerOptions{}
	}
	if hopts.Level == nil {
		hopts.Level = cfg.level
	}

	var h slog.Handler
	if cfg.json {
		h = slog.NewJSONHandler(cfg.output, hopts)
	} else {
		h = slog.NewTextHandler(cfg.output, hopts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}

	return slog.New(h)
}

// Discard returns a logger that drops all records.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Leveler) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithJSONFormatter switches output to JSON.
func WithJSONFormatter() Option {
	return func(c *config) {
		c.json = true
	}
}

// WithTextFormatter switches output to logfmt-style text.
func WithTextFormatter() Option {
	return func(c *config) {
		c.json = false
	}
}

// WithOutput sets the destination writer. Nil is ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithHandlerOptions sets raw handler options. A Level set here wins over WithLevel.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		c.options = opts
	}
}

// WithDevelopment configures text output at debug level tagged with the service name.
func WithDevelopment(service string) Option {
	return func(c *config) {
		c.json = false
		c.level = slog.LevelDebug
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "development"))
	}
}

// WithProduction configures JSON output at info level tagged with the service name.
func WithProduction(service string) Option {
	return func(c *config) {
		c.json = true
		c.level = slog.LevelInfo
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "production"))
	}
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to slog levels.
// Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
