// Package logger builds the slog loggers used by sealpost and provides
// attribute helpers for common fields.
//
// Attribute helpers return an empty slog.Attr for nil errors and empty
// identifiers, so callers can pass them unconditionally:
//
//	log.Warn("field could not be opened", logger.Error(err), logger.ID("post_id", id))
//
// Secrets never go through these helpers. Log lengths, not values.
package logger
