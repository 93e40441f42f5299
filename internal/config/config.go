// Package config loads the YAML process configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole process configuration. It is loaded once at start and
// handed to constructors; nothing reads it globally.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Blacklist BlacklistConfig `yaml:"blacklist"`
	Filters   FiltersConfig   `yaml:"filters"`
	Risk      RiskConfig      `yaml:"risk"`
	Search    SearchConfig    `yaml:"search"`
	Listener  ListenerConfig  `yaml:"listener"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Verdicts  VerdictsConfig  `yaml:"verdicts"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DatabaseConfig selects the coin store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or memory
	DSN    string `yaml:"dsn"`
}

// APIConfig holds the external endpoints.
type APIConfig struct {
	DexScreenerURL  string        `yaml:"dexscreener_url"`
	PumpPortalWSURL string        `yaml:"pumpportal_ws_url"`
	RugCheckURL     string        `yaml:"rugcheck_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

// BlacklistConfig lists blocked token mints and developer addresses.
type BlacklistConfig struct {
	Tokens     []string `yaml:"tokens"`
	Developers []string `yaml:"developers"`
}

// FiltersConfig holds the threshold and synthetic-volume limits.
type FiltersConfig struct {
	MinMarketCap            float64 `yaml:"min_market_cap"`
	MinLiquidity            float64 `yaml:"min_liquidity"`
	MaxVolumeLiquidityRatio float64 `yaml:"max_volume_liquidity_ratio"`
	MinTxns24h              int64   `yaml:"min_txns_24h"`
	MaxBuySellRatio         float64 `yaml:"max_buy_sell_ratio"`
}

// RiskConfig configures the risk report gate.
type RiskConfig struct {
	CallInterval       time.Duration `yaml:"call_interval"`
	ConcentrationRisks []string      `yaml:"concentration_risks"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	RedisAddr          string        `yaml:"redis_addr"` // empty: in-process cache
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// SearchConfig configures the pair ingestor.
type SearchConfig struct {
	Query   string `yaml:"query"`
	Retries int    `yaml:"retries"`
}

// ListenerConfig configures the event listener.
type ListenerConfig struct {
	Window   time.Duration `yaml:"window"` // zero: until cancelled
	Restarts int           `yaml:"restarts"`
}

// ScheduleConfig configures the watch command.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// VerdictsConfig configures the optional ClickHouse verdict log.
type VerdictsConfig struct {
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the /metrics listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/memebot.db?_pragma=busy_timeout(5000)",
		},
		API: APIConfig{
			DexScreenerURL:  "https://api.dexscreener.com/latest/",
			PumpPortalWSURL: "wss://pumpportal.fun/api/data",
			RugCheckURL:     "https://api.rugcheck.xyz/v1/",
			Timeout:         15 * time.Second,
		},
		Filters: FiltersConfig{
			MinMarketCap:            10000,
			MinLiquidity:            5000,
			MaxVolumeLiquidityRatio: 10,
			MinTxns24h:              50,
			MaxBuySellRatio:         5,
		},
		Risk: RiskConfig{
			CallInterval: time.Second,
			ConcentrationRisks: []string{
				"Single holder ownership",
				"Top 10 holders high ownership",
				"High holder concentration",
			},
			CacheTTL:           10 * time.Minute,
			BreakerMaxFailures: 5,
			BreakerTimeout:     time.Minute,
		},
		Search: SearchConfig{
			Query: "PEPE/SOL",
		},
		Listener: ListenerConfig{
			Window: 5 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Cron: "*/15 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize trims list entries and drops empty ones.
func (c *Config) normalize() {
	c.Blacklist.Tokens = cleanList(c.Blacklist.Tokens)
	c.Blacklist.Developers = cleanList(c.Blacklist.Developers)
	c.Risk.ConcentrationRisks = cleanList(c.Risk.ConcentrationRisks)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite, postgres or memory", c.Database.Driver))
	}

	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.Filters.MinMarketCap < 0 || c.Filters.MinLiquidity < 0 {
		errs = append(errs, errors.New("filters minimums must not be negative"))
	}
	if c.Filters.MaxVolumeLiquidityRatio <= 0 {
		errs = append(errs, errors.New("filters.max_volume_liquidity_ratio must be positive"))
	}
	if c.Filters.MaxBuySellRatio <= 0 {
		errs = append(errs, errors.New("filters.max_buy_sell_ratio must be positive"))
	}
	if c.Risk.CallInterval <= 0 {
		errs = append(errs, errors.New("risk.call_interval must be positive"))
	}
	if c.Search.Retries < 0 || c.Listener.Restarts < 0 {
		errs = append(errs, errors.New("search.retries and listener.restarts must not be negative"))
	}
	if c.Listener.Window < 0 {
		errs = append(errs, errors.New("listener.window must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
