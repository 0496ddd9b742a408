// Package config carries the tunables the decision kernel consumes as input:
// search bounds, risk thresholds, fee and gas tables, and scheduler sizing.
// The kernel never owns configuration; callers load it here and hand the
// relevant pieces to each component.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/Omni-Defi-Production-System1/execution-lane/flashloan"
	"github.com/Omni-Defi-Production-System1/execution-lane/gas"
)

// Config is the full configuration surface of the kernel.
type Config struct {
	// Path search
	MaxHops int `json:"max_hops" yaml:"max_hops"`

	// Risk thresholds
	PriceImpactThreshold decimal.Decimal `json:"price_impact_threshold" yaml:"price_impact_threshold"`

	// Fee and gas tables
	FlashLoanFees flashloan.FeeSchedule `json:"flash_loan_fees" yaml:"flash_loan_fees"`
	GasUnits      gas.Schedule          `json:"gas_units" yaml:"gas_units"`

	// Scheduler sizing
	Mode        string        `json:"mode" yaml:"mode"`
	MaxWorkers  int           `json:"max_workers" yaml:"max_workers"`
	BatchSize   int           `json:"batch_size" yaml:"batch_size"`
	TaskTimeout time.Duration `json:"task_timeout" yaml:"task_timeout"`
	CacheTTL    time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// BaselinePerItem is the assumed sequential cost of one evaluation,
	// used only for the reported speedup factor.
	BaselinePerItem time.Duration `json:"baseline_per_item" yaml:"baseline_per_item"`

	// Optional throttle on parallel evaluation
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Internal components
	Logger *zap.Logger `json:"-" yaml:"-"`
}

// RateLimitConfig throttles worker-pool task starts. Zero RequestsPerSecond
// disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
}

// DefaultConfig returns the kernel defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxHops:              4,
		PriceImpactThreshold: decimal.RequireFromString("0.03"),
		FlashLoanFees:        flashloan.DefaultFees(),
		GasUnits:             gas.DefaultSchedule(),
		Mode:                 "parallel",
		MaxWorkers:           8,
		BatchSize:            100,
		TaskTimeout:          5 * time.Second,
		CacheTTL:             5 * time.Second,
		BaselinePerItem:      100 * time.Millisecond,
	}
}

// ValidateConfig checks the configuration, aggregating every violation into
// one error.
func (c *Config) ValidateConfig() error {
	var errs []string

	if c.MaxHops <= 0 {
		errs = append(errs, "max_hops must be positive")
	}
	if c.MaxHops > 5 {
		errs = append(errs, "max_hops above 5 makes the cycle search intractable")
	}
	if c.PriceImpactThreshold.IsNegative() {
		errs = append(errs, "price_impact_threshold must not be negative")
	}
	if len(c.FlashLoanFees) == 0 {
		errs = append(errs, "flash_loan_fees must name at least one provider")
	}
	for provider, rate := range c.FlashLoanFees {
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Sprintf("fee rate for %q outside [0,1)", provider))
		}
	}
	if c.MaxWorkers <= 0 {
		errs = append(errs, "max_workers must be positive")
	}
	if c.BatchSize <= 0 {
		errs = append(errs, "batch_size must be positive")
	}
	if c.TaskTimeout <= 0 {
		errs = append(errs, "task_timeout must be positive")
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, "cache_ttl must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, "requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, "burst_size must be positive when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadConfig reads a config file (JSON, or YAML for .yaml/.yml paths) over
// the defaults, applies environment overrides and validates the result.
func LoadConfig(cfgFile string) (*Config, error) {
	config := DefaultConfig()

	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(cfgFile)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to decode yaml config: %w", err)
			}
		default:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to decode json config: %w", err)
			}
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	config.Logger = logger

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return config, nil
}
