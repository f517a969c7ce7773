// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/attendance-forecast/internal/utils"
)

// Config holds application configuration
type Config struct {
	Port           int
	LogLevel       string
	LogPretty      bool
	DevMode        bool
	RequestTimeout time.Duration // chi middleware timeout for every route
	AllowedOrigins []string
	Forecast       *ForecastConfig
}

// ForecastConfig holds forecast request settings
type ForecastConfig struct {
	DefaultHorizon int
	MaxHorizon     int
	Seed           uint64 // 0 draws a fresh seed per request
	Timeout        time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	seed, err := getEnvAsUint64("FORECAST_SEED", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 5000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", true),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Forecast: &ForecastConfig{
			DefaultHorizon: getEnvAsInt("DEFAULT_HORIZON", 30),
			MaxHorizon:     getEnvAsInt("MAX_HORIZON", 366),
			Seed:           seed,
			Timeout:        getEnvAsDuration("FORECAST_TIMEOUT", 20*time.Second),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.Forecast == nil {
		return fmt.Errorf("forecast configuration missing")
	}
	if c.Forecast.DefaultHorizon < 1 {
		return fmt.Errorf("DEFAULT_HORIZON must be positive, got %d", c.Forecast.DefaultHorizon)
	}
	if c.Forecast.MaxHorizon < c.Forecast.DefaultHorizon {
		return fmt.Errorf("MAX_HORIZON (%d) must not be below DEFAULT_HORIZON (%d)",
			c.Forecast.MaxHorizon, c.Forecast.DefaultHorizon)
	}
	if c.Forecast.Timeout <= 0 {
		return fmt.Errorf("FORECAST_TIMEOUT must be positive, got %s", c.Forecast.Timeout)
	}
	// The forecast deadline has to fire before the router's request timeout.
	if c.Forecast.Timeout >= c.RequestTimeout {
		return fmt.Errorf("FORECAST_TIMEOUT (%s) must be below REQUEST_TIMEOUT (%s)",
			c.Forecast.Timeout, c.RequestTimeout)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsUint64 rejects unparsable values instead of using the default.
func getEnvAsUint64(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.ParseCSV(os.Getenv(key)); len(values) > 0 {
		return values
	}
	return defaultValue
}
