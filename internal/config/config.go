package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"nyassess/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Watch  WatchConfig
	Export ExportConfig
	Log    LogConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds workbook ingestion settings
type DataConfig struct {
	Root            string
	LoadConcurrency int
}

// WatchConfig controls the directory watcher
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// ExportConfig holds batch export targets
type ExportConfig struct {
	Dir         string
	DatabaseURL string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	concurrency, err := getEnvInt("LOAD_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	watchEnabled, err := getEnvBool("WATCH_ENABLED", false)
	if err != nil {
		return nil, err
	}
	debounce, err := getEnvDuration("WATCH_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Data: DataConfig{
			Root:            getEnvOrDefault("DATA_ROOT", "data/state_score_public_districtarc"),
			LoadConcurrency: concurrency,
		},
		Watch: WatchConfig{
			Enabled:  watchEnabled,
			Debounce: debounce,
		},
		Export: ExportConfig{
			Dir:         getEnvOrDefault("EXPORT_DIR", "public/ny-assessments-public"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Data.Root == "" {
		return errors.ConfigInvalid("DATA_ROOT is required")
	}
	if config.Data.LoadConcurrency < 1 {
		return errors.ConfigInvalid("LOAD_CONCURRENCY must be at least 1")
	}
	if config.Watch.Debounce <= 0 {
		return errors.ConfigInvalid("WATCH_DEBOUNCE must be positive")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT must be numeric, got %q", config.Server.Port))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.ConfigInvalid(fmt.Sprintf("%s must be a boolean, got %q", key, value))
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a duration, got %q", key, value))
	}
	return d, nil
}
