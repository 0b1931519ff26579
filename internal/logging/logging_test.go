package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/ferrotree/internal/logging"
)

func TestNewNonFileWriterUsesTextHandlerUnlessForced(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, false)
	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"), "non-forced, non-file writer should use the text handler")
}

func TestNewJSONForced(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, true)
	logger.Info("hello")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"), "jsonForced should always use the JSON handler")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn, true)
	logger.Info("should be filtered")
	logger.Warn("should appear")
	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("bogus"), "unrecognized levels default to Info")
}
