package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats accepted by WithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	level  slog.Level
	format string
	output io.Writer
	attrs  []slog.Attr
}

// Option configures New.
type Option func(*options)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLevelName parses a level name (debug, info, warn, error).
// Unknown names leave the level unchanged.
func WithLevelName(name string) Option {
	return func(o *options) {
		if level, ok := ParseLevel(name); ok {
			o.level = level
		}
	}
}

// WithFormat selects text or json output.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = strings.ToLower(format)
	}
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes attached to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New creates a logger. Defaults: info level, text format, stderr.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}

	var handler slog.Handler
	if o.format == FormatJSON {
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(o.output, handlerOpts)
	}

	if len(o.attrs) > 0 {
		handler = handler.WithAttrs(o.attrs)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return Discard()
	}
	return log
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
