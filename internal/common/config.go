package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Database configuration
	DBDriver string
	DBDSN    string

	// HTTP server configuration
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Auth configuration
	JWTSecret  string
	JWTTTL     time.Duration
	LegacySalt string
	BcryptCost int32

	// Rendering configuration
	WKHTMLToPDFPath string
	RenderTimeout   time.Duration
	SettingsPath    string

	// Delivery configuration
	SendDelay      time.Duration
	OutboxInterval time.Duration
	OutboxBatch    int32

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		DBDriver: getEnv("FEEDESK_DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("FEEDESK_DB_DSN", "feedesk.db"),

		HTTPAddr:        getEnv("FEEDESK_HTTP_ADDR", ":8080"),
		ShutdownTimeout: getEnvAsDuration("FEEDESK_SHUTDOWN_TIMEOUT", 10*time.Second),

		JWTSecret:  getEnv("FEEDESK_JWT_SECRET", ""),
		JWTTTL:     getEnvAsDuration("FEEDESK_JWT_TTL", 12*time.Hour),
		LegacySalt: getEnv("FEEDESK_LEGACY_SALT", ""),
		BcryptCost: getEnvAsInt32("FEEDESK_BCRYPT_COST", 10),

		WKHTMLToPDFPath: getEnv("FEEDESK_WKHTMLTOPDF_PATH", "wkhtmltopdf"),
		RenderTimeout:   getEnvAsDuration("FEEDESK_RENDER_TIMEOUT", 30*time.Second),
		SettingsPath:    getEnv("FEEDESK_SETTINGS_PATH", ""),

		SendDelay:      getEnvAsDuration("FEEDESK_SEND_DELAY", 3*time.Second),
		OutboxInterval: getEnvAsDuration("FEEDESK_OUTBOX_INTERVAL", 15*time.Second),
		OutboxBatch:    getEnvAsInt32("FEEDESK_OUTBOX_BATCH", 25),

		LogLevel: getEnv("FEEDESK_LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return NewAppError("CONFIG_ERROR", "db driver must be sqlite or postgres", nil)
	}
	if c.DBDSN == "" {
		return NewAppError("CONFIG_ERROR", "database DSN is required", nil)
	}
	if c.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "http listen address is required", nil)
	}
	if c.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "jwt secret is required", nil)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return NewAppError("CONFIG_ERROR", "bcrypt cost must be between 4 and 31", nil)
	}
	if c.OutboxBatch < 1 {
		return NewAppError("CONFIG_ERROR", "outbox batch size must be at least 1", nil)
	}
	return nil
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intValue)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
