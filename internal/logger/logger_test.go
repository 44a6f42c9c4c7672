package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/sealpost/internal/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat("json"),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "sealpost")),
	)

	log.Info("key derived", logger.Length("salt", 64))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "key derived", rec["msg"])
	assert.Equal(t, "sealpost", rec["service"])
	assert.EqualValues(t, 64, rec["salt_len"])
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.New(logger.WithLevelName("warn"), logger.WithOutput(&buf))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := logger.ParseLevel(tt.name)
		assert.Equal(t, tt.valid, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestEmptyAttrs(t *testing.T) {
	t.Parallel()
	assert.True(t, logger.ID("post_id", "").Equal(slog.Attr{}))
	assert.True(t, logger.ErrorKind("").Equal(slog.Attr{}))

	attr := logger.ID("post_id", "abc")
	assert.Equal(t, "post_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}

func TestElapsed(t *testing.T) {
	t.Parallel()
	attr := logger.Elapsed(time.Now().Add(-time.Second))
	require.Equal(t, "elapsed", attr.Key)
	assert.GreaterOrEqual(t, attr.Value.Duration(), time.Second)
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, logger.OrDiscard(nil))

	log := logger.Discard()
	assert.Same(t, log, logger.OrDiscard(log))
}
