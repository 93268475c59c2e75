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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
symbol: NQ
risk:
  risk_per_trade_pct: 0.01
  value_per_point: 20
enabled_sessions: ["NY AM Kill Zone"]
news_events:
  - 2024-03-08T13:30:00Z
data_source:
  type: csv
  csv_path: bars.csv
  breaker_cooldown: 30s
`)
	t.Setenv("INITIAL_EQUITY", "50000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "NQ", cfg.Symbol)
	assert.Equal(t, 50000.0, cfg.InitialEquity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.01, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 20.0, cfg.Risk.ValuePerPoint)
	assert.Equal(t, 0.06, cfg.Risk.MaxDailyDrawdown, "unset fields keep defaults")
	assert.Equal(t, 30*time.Second, cfg.DataSource.BreakerCooldown)
	require.Len(t, cfg.NewsEvents, 1)
	assert.Equal(t, 13, cfg.NewsEvents[0].Hour())
	require.Len(t, cfg.ActiveSessions(), 1)
	assert.Equal(t, "NY AM Kill Zone", cfg.ActiveSessions()[0].Name)
}

func TestAllTimeframes(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"1m", "5m", "15m", "1h", "4h", "1d"}, cfg.AllTimeframes())
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown timeframe":   func(c *Config) { c.Structure.Timeframe = "7m" },
		"base not shortest":   func(c *Config) { c.BaseTimeframe = "5m" },
		"risk out of range":   func(c *Config) { c.Risk.MaxDailyDrawdown = 1.5 },
		"bad session clock":   func(c *Config) { c.Sessions[0].Start = "25:00" },
		"bad timezone":        func(c *Config) { c.Timezone = "Mars/Olympus" },
		"csv without path":    func(c *Config) { c.DataSource.Type = "csv" },
		"unknown broker":      func(c *Config) { c.Broker = "live" },
		"non-positive equity": func(c *Config) { c.InitialEquity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
	assert.NoError(t, Default().Validate())
}
