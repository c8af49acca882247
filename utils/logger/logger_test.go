package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcunha/hermes-router/utils/config"
)

func TestConfigureWriter(t *testing.T) {
	t.Run("default level is info", func(t *testing.T) {
		var buf bytes.Buffer
		_ = ConfigureWriter(config.LogConfig{Format: "json"}, &buf)
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("debug level", func(t *testing.T) {
		var buf bytes.Buffer
		_ = ConfigureWriter(config.LogConfig{Level: "DEBUG", Format: "json"}, &buf)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		_ = ConfigureWriter(config.LogConfig{Level: "loud", Format: "json"}, &buf)
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("json output carries app field", func(t *testing.T) {
		var buf bytes.Buffer
		l := ConfigureWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
		l.Info().Msg("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hermes-router", entry["app"])
		assert.Equal(t, "hello", entry["message"])
	})

	t.Run("console output is not json", func(t *testing.T) {
		var buf bytes.Buffer
		l := ConfigureWriter(config.LogConfig{Level: "info", Format: "console"}, &buf)
		l.Info().Msg("hello")

		assert.Contains(t, buf.String(), "hello")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}

func TestGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := ConfigureWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)

	engine := gin.New()
	engine.Use(GinLogger(l))
	engine.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.EqualValues(t, 404, entry["status"])
}
