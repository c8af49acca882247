// Package logger configures the zerolog logger shared by all components.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nfcunha/hermes-router/utils/config"
)

// Configure sets the global level and returns a logger writing JSON to
// stdout, or human-readable output when format is "console".
func Configure(cfg config.LogConfig) zerolog.Logger {
	return ConfigureWriter(cfg, os.Stdout)
}

// ConfigureWriter is Configure with an explicit destination.
func ConfigureWriter(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("app", "hermes-router").
		Logger()

	log.Logger = logger
	return logger
}

// GinLogger logs one line per request handled by the engine.
func GinLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		} else if c.Writer.Status() >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request handled")
	}
}
