package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache formats for the cleaned-copy output.
const (
	CacheNone   = ""
	CacheCSV    = "csv"
	CacheArrow  = "arrow"
	CacheSQLite = "sqlite"
)

type Config struct {
	// Input
	DataPath string

	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogPretty bool
	LogCaller bool

	// Cleaned-copy cache (disabled when CacheFormat is empty)
	CacheFormat string
	CachePath   string

	// Donut chart
	DonutTopN int
}

// LoadEnvFile loads a .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func Load() *Config {
	return &Config{
		DataPath: getEnv("MORTALITY_DATA_PATH", "data/mortality.csv"),

		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),
		LogCaller: getEnvBool("LOG_CALLER", false),

		CacheFormat: strings.ToLower(getEnv("CACHE_FORMAT", CacheNone)),
		CachePath:   getEnv("CACHE_PATH", ""),

		DonutTopN: getEnvInt("DONUT_TOP_N", 5),
	}
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.DataPath) == "" {
		errors = append(errors, "data path cannot be empty")
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	validFormats := []string{CacheNone, CacheCSV, CacheArrow, CacheSQLite}
	if !slices.Contains(validFormats, c.CacheFormat) {
		errors = append(errors, fmt.Sprintf("invalid cache format '%s': must be one of csv, arrow, sqlite or empty", c.CacheFormat))
	} else if c.CacheFormat != CacheNone && c.CachePath == "" {
		errors = append(errors, fmt.Sprintf("cache path cannot be empty when cache format is '%s'", c.CacheFormat))
	}

	if c.DonutTopN < 1 {
		errors = append(errors, fmt.Sprintf("invalid donut top N %d: must be at least 1", c.DonutTopN))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
