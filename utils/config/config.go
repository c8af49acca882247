// Package config handles environment-based configuration for Hermes Router.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Config represents the complete configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Routes   RoutesConfig
	Database DatabaseConfig
	Forward  ForwardConfig
	Log      LogConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// RoutesConfig points at the YAML route table. An empty File selects the built-in table.
type RoutesConfig struct {
	File string
}

// DatabaseConfig contains the SQLite resolution log settings.
type DatabaseConfig struct {
	Path string
}

// ForwardConfig contains settings for the forward endpoint.
type ForwardConfig struct {
	Timeout time.Duration
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("HERMES_SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("HERMES_SERVER_PORT", 8080),
			ReadTimeout:    getEnvDuration("HERMES_SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvDuration("HERMES_SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvDuration("HERMES_SERVER_IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes: getEnvInt("HERMES_SERVER_MAX_HEADER_BYTES", 1048576), // 1MB
		},
		Routes: RoutesConfig{
			File: getEnv("HERMES_ROUTES_FILE", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("HERMES_DB_PATH", "./hermes.db"),
		},
		Forward: ForwardConfig{
			Timeout: getEnvDuration("HERMES_FORWARD_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("HERMES_LOG_LEVEL", "info"),
			Format: getEnv("HERMES_LOG_FORMAT", "json"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks if the configuration is valid.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be positive)", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be positive)", cfg.Server.WriteTimeout)
	}
	if cfg.Forward.Timeout <= 0 {
		return fmt.Errorf("invalid forward timeout: %v (must be positive)", cfg.Forward.Timeout)
	}

	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", cfg.Log.Format)
	}

	return nil
}

// IsDebugMode returns true if debug logging is enabled.
func (c *Config) IsDebugMode() bool {
	return c.Log.Level == "debug"
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Int("default", defaultValue).Msg("Invalid integer value, using default")
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value.
// Accepts values like "30s", "5m", "1h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warn().Str("key", key).Str("value", value).Dur("default", defaultValue).Msg("Invalid duration value, using default")
	}
	return defaultValue
}
