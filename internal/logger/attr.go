package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ErrorKind records the taxonomy name of an error, e.g. "IntegrityError".
func ErrorKind(kind string) slog.Attr {
	if kind == "" {
		return slog.Attr{}
	}
	return slog.String("error_kind", kind)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action names the operation being performed.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Length records the byte length of a value that must not be logged itself.
func Length(key string, n int) slog.Attr {
	return slog.Int(key+"_len", n)
}

// Elapsed logs the duration since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ID creates an identifier attribute. Returns an empty Attr for "".
func ID(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
