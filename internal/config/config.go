// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the console.
type Config struct {
	// Backend
	APIBaseURL     string
	RequestTimeout time.Duration

	// Operator credentials
	Username string
	Password string

	// Realtime feed
	Reconnect bool

	// Activity buffer
	BufferCapacity int

	// Trade logs
	TradeLogLimit int

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     getEnv("ARBDECK_API_URL", "http://localhost:8000"),
		RequestTimeout: time.Duration(getEnvInt("ARBDECK_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,

		Username: getEnv("ARBDECK_USERNAME", ""),
		Password: getEnv("ARBDECK_PASSWORD", ""),

		Reconnect: getEnvBool("ARBDECK_RECONNECT", true),

		BufferCapacity: getEnvInt("ARBDECK_BUFFER_CAPACITY", 100),

		TradeLogLimit: getEnvInt("ARBDECK_TRADE_LOG_LIMIT", 100),

		EnableTUI:     getEnvBool("ARBDECK_ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("ARBDECK_UI_REFRESH_MS", 500)) * time.Millisecond,

		LogLevel: getEnv("ARBDECK_LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("ARBDECK_API_URL is invalid: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("ARBDECK_API_URL must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("ARBDECK_API_URL host is required")
	}

	if c.Username == "" {
		return fmt.Errorf("ARBDECK_USERNAME is required")
	}
	if c.Password == "" {
		return fmt.Errorf("ARBDECK_PASSWORD is required")
	}

	if c.BufferCapacity < 1 {
		return fmt.Errorf("ARBDECK_BUFFER_CAPACITY must be at least 1")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("ARBDECK_REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

// MaskedPassword returns the password with most characters hidden for logging.
func (c *Config) MaskedPassword() string {
	return maskSecret(c.Password)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
