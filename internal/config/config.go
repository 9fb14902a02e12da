package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"crypto-backtest-lab/internal/domain"
)

// Default values applied when the config file omits them.
const (
	DefaultInitialCapital = 10000.0
	DefaultCommissionRate = 0.001
	DefaultTimeframe      = domain.Timeframe1Day
	DefaultLogLevel       = "info"
)

// Config is the top-level configuration for a backtest run.
type Config struct {
	Backtest   Backtest         `yaml:"backtest"`
	Strategies []StrategyParams `yaml:"strategies"`
	Exchange   Exchange         `yaml:"exchange"`
	Storage    Storage          `yaml:"storage"`
	Logging    Logging          `yaml:"logging"`
}

// Backtest holds the simulation window and portfolio parameters.
type Backtest struct {
	Tickers        []string `yaml:"tickers"`
	Timeframe      string   `yaml:"timeframe"`
	StartDate      string   `yaml:"start_date"` // YYYY-MM-DD, UTC
	EndDate        string   `yaml:"end_date"`   // YYYY-MM-DD, UTC
	InitialCapital float64  `yaml:"initial_capital"`
	CommissionRate float64  `yaml:"commission_rate"`
}

// StrategyParams is one strategy block. Parameters not used by the named
// type stay nil.
type StrategyParams struct {
	Type string `yaml:"type"`

	ShortWindow *int `yaml:"short_window"`
	LongWindow  *int `yaml:"long_window"`

	Window           *int     `yaml:"window"`
	StdDevMultiplier *float64 `yaml:"std_dev_multiplier"`

	LookbackWindow    *int     `yaml:"lookback_window"`
	EntryThresholdPct *float64 `yaml:"entry_threshold_pct"`
}

// Exchange holds the candle data source endpoints.
type Exchange struct {
	BaseURL        string `yaml:"base_url"`
	StreamEndpoint string `yaml:"stream_endpoint"`
}

// Storage selects the persistence backend and its DSNs.
type Storage struct {
	Backend       string `yaml:"backend"` // "memory" or "database"
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults and environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backtest.Timeframe == "" {
		c.Backtest.Timeframe = DefaultTimeframe
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = DefaultInitialCapital
	}
	if c.Backtest.CommissionRate == 0 {
		c.Backtest.CommissionRate = DefaultCommissionRate
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors that would make a run
// meaningless. Strategy parameter values are validated later by the strategy
// factory; here only the presence of the type is checked.
func (c *Config) Validate() error {
	if len(c.Backtest.Tickers) == 0 {
		return fmt.Errorf("backtest.tickers must not be empty")
	}
	for i, ticker := range c.Backtest.Tickers {
		if ticker == "" {
			return fmt.Errorf("backtest.tickers[%d] is empty", i)
		}
	}

	switch c.Backtest.Timeframe {
	case domain.Timeframe1Min, domain.Timeframe5Min, domain.Timeframe1Hour, domain.Timeframe1Day:
	default:
		return fmt.Errorf("backtest.timeframe %q is not supported", c.Backtest.Timeframe)
	}

	start, err := c.StartMs()
	if err != nil {
		return err
	}
	end, err := c.EndMs()
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("backtest.end_date must be after backtest.start_date")
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0, 1), got %v", c.Backtest.CommissionRate)
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("strategies must not be empty")
	}
	for i, s := range c.Strategies {
		if s.Type == "" {
			return fmt.Errorf("strategies[%d].type is required", i)
		}
	}

	switch c.Storage.Backend {
	case "memory":
	case "database":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the database backend")
		}
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for the database backend")
		}
	default:
		return fmt.Errorf("storage.backend must be \"memory\" or \"database\", got %q", c.Storage.Backend)
	}

	return nil
}

// StartMs returns the backtest start as Unix milliseconds (UTC midnight).
func (c *Config) StartMs() (int64, error) {
	return parseDateMs("backtest.start_date", c.Backtest.StartDate)
}

// EndMs returns the backtest end as Unix milliseconds (UTC midnight).
func (c *Config) EndMs() (int64, error) {
	return parseDateMs("backtest.end_date", c.Backtest.EndDate)
}

func parseDateMs(field, value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid date %q (want YYYY-MM-DD): %w", field, value, err)
	}
	return t.UnixMilli(), nil
}

// ToDomain converts a strategy block into the domain parameter struct
// consumed by the strategy factory.
func (p StrategyParams) ToDomain() domain.StrategyConfig {
	return domain.StrategyConfig{
		StrategyType:      p.Type,
		ShortWindow:       p.ShortWindow,
		LongWindow:        p.LongWindow,
		Window:            p.Window,
		StdDevMultiplier:  p.StdDevMultiplier,
		LookbackWindow:    p.LookbackWindow,
		EntryThresholdPct: p.EntryThresholdPct,
	}
}
