package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvMode       = "EXECUTION_LANE_MODE"
	EnvMaxHops    = "EXECUTION_LANE_MAX_HOPS"
	EnvMaxWorkers = "EXECUTION_LANE_MAX_WORKERS"
	EnvBatchSize  = "EXECUTION_LANE_BATCH_SIZE"
)

// LoadEnv loads environment variables from a .env file if one exists.
func LoadEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) error {
	if mode := os.Getenv(EnvMode); mode != "" {
		cfg.Mode = mode
	}
	for _, v := range []struct {
		key    string
		target *int
	}{
		{EnvMaxHops, &cfg.MaxHops},
		{EnvMaxWorkers, &cfg.MaxWorkers},
		{EnvBatchSize, &cfg.BatchSize},
	} {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.target = parsed
	}
	return nil
}
