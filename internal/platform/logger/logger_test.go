package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personvault/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json handler filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})
		log.Info("dropped")
		log.Warn("kept", "group_id", 7)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "personvault", entry["service"])
		assert.InDelta(t, 7, entry["group_id"], 0)
	})

	t.Run("text handler", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
