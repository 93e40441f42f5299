package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "PEPE/SOL", cfg.Search.Query)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: Postgres
  dsn: postgres://u:p@localhost/memebot
api:
  timeout: 5s
blacklist:
  tokens: [" MintBad ", "", "MintWorse"]
filters:
  min_market_cap: 25000
risk:
  call_interval: 250ms
  concentration_risks: ["Single holder ownership"]
  redis_addr: localhost:6379
listener:
  window: 2m
  restarts: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"MintBad", "MintWorse"}, cfg.Blacklist.Tokens)
	assert.Equal(t, 25000.0, cfg.Filters.MinMarketCap)
	assert.Equal(t, 5000.0, cfg.Filters.MinLiquidity, "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Risk.CallInterval)
	assert.Equal(t, []string{"Single holder ownership"}, cfg.Risk.ConcentrationRisks)
	assert.Equal(t, "localhost:6379", cfg.Risk.RedisAddr)
	assert.Equal(t, 2*time.Minute, cfg.Listener.Window)
	assert.Equal(t, 3, cfg.Listener.Restarts)
	assert.Equal(t, "https://api.rugcheck.xyz/v1/", cfg.API.RugCheckURL)
}

func TestLoad_ShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefault_ListenerWindowIsBounded(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Listener.Window, "both mode must reach classification without an interrupt")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad driver", "database:\n  driver: mysql\n"},
		{"missing dsn", "database:\n  driver: sqlite\n  dsn: \"\"\n"},
		{"negative retries", "search:\n  retries: -1\n"},
		{"zero ratio", "filters:\n  max_buy_sell_ratio: 0\n"},
		{"zero call interval", "risk:\n  call_interval: 0s\n"},
		{"negative call interval", "risk:\n  call_interval: -1s\n"},
		{"bad yaml", "database: [\n"},
		{"bad duration", "api:\n  timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Marshal(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "query: PEPE/SOL")
	assert.Contains(t, string(out), "driver: sqlite")
}
