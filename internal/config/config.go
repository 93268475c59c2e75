package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/risk"
	"KillZoneSentinel/internal/strategy"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Symbol          string                   `yaml:"symbol"`
	InitialEquity   float64                  `yaml:"initial_equity"`
	Timezone        string                   `yaml:"timezone"`
	BaseTimeframe   string                   `yaml:"base_timeframe"`
	Bias            strategy.BiasConfig      `yaml:"bias"`
	Structure       strategy.StructureConfig `yaml:"structure"`
	Execution       strategy.ExecutionConfig `yaml:"execution"`
	Risk            risk.Limits              `yaml:"risk"`
	Sessions        []risk.Session           `yaml:"sessions"`
	EnabledSessions []string                 `yaml:"enabled_sessions"`
	NewsEvents      []time.Time              `yaml:"news_events"`
	Broker          string                   `yaml:"broker"`
	StateFile       string                   `yaml:"state_file"`
	ExportDir       string                   `yaml:"export_dir"`
	Telegram        struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Type            string        `yaml:"type"`
		BaseURL         string        `yaml:"base_url"`
		APIKey          string        `yaml:"api_key"`
		CSVPath         string        `yaml:"csv_path"`
		RateLimit       float64       `yaml:"rate_limit"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"data_source"`
	Schedule struct {
		PollCron   string `yaml:"poll_cron"`
		DailyCron  string `yaml:"daily_cron"`
		WeeklyCron string `yaml:"weekly_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the built-in configuration every file is layered on.
func Default() *Config {
	cfg := &Config{
		Symbol:        "XAUUSD",
		InitialEquity: 100000,
		Timezone:      "America/New_York",
		BaseTimeframe: "1m",
		Bias:          strategy.DefaultBiasConfig(),
		Structure:     strategy.DefaultStructureConfig(),
		Execution:     strategy.DefaultExecutionConfig(),
		Risk:          risk.DefaultLimits(),
		Sessions:      risk.DefaultSessions(),
		Broker:        "paper",
		StateFile:     "data/account_state.json",
		ExportDir:     "data/exports",
	}
	cfg.DataSource.Type = "mock"
	cfg.DataSource.RateLimit = 1
	cfg.DataSource.BreakerFailures = 3
	cfg.DataSource.BreakerCooldown = time.Minute
	cfg.Schedule.PollCron = "5 * * * * *"
	cfg.Schedule.DailyCron = "0 5 17 * * 1-5"
	cfg.Schedule.WeeklyCron = "0 0 18 * * 5"
	cfg.Database.SQLitePath = "data/sentinel.db"
	cfg.HTTP.Addr = "127.0.0.1:8080"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads .env (if present) and a YAML file over the defaults, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Symbol = v
	}
	if v := os.Getenv("INITIAL_EQUITY"); v != "" {
		if eq, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.InitialEquity = eq
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Type = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		cfg.DataSource.CSVPath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	return cfg, nil
}

// AllTimeframes is every timeframe the engines consume plus the base, shortest first.
func (c *Config) AllTimeframes() []string {
	seen := map[string]bool{}
	var out []string
	add := func(tfs ...string) {
		for _, tf := range tfs {
			if tf != "" && !seen[tf] {
				seen[tf] = true
				out = append(out, tf)
			}
		}
	}
	add(c.BaseTimeframe, c.Execution.PrimaryTimeframe, c.Structure.Timeframe, c.Bias.PrimaryTimeframe)
	add(c.Execution.ContextTimeframes...)
	add(c.Bias.ContextTimeframes...)
	sort.SliceStable(out, func(i, j int) bool {
		mi, _ := model.TimeframeMinutes(out[i])
		mj, _ := model.TimeframeMinutes(out[j])
		return mi < mj
	})
	return out
}

// ActiveSessions filters Sessions by EnabledSessions; an empty filter enables all.
func (c *Config) ActiveSessions() []risk.Session {
	if len(c.EnabledSessions) == 0 {
		return c.Sessions
	}
	var out []risk.Session
	for _, s := range c.Sessions {
		for _, name := range c.EnabledSessions {
			if s.Name == name {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Validate checks timeframes, risk limits, sessions and the selected integrations.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	if c.InitialEquity <= 0 {
		return fmt.Errorf("%w: initial_equity must be positive", ErrInvalidConfig)
	}
	base, err := model.TimeframeMinutes(c.BaseTimeframe)
	if err != nil {
		return fmt.Errorf("%w: base_timeframe: %w", ErrInvalidConfig, err)
	}
	for _, tf := range c.AllTimeframes() {
		m, err := model.TimeframeMinutes(tf)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if m < base {
			return fmt.Errorf("%w: timeframe %s is shorter than base %s", ErrInvalidConfig, tf, c.BaseTimeframe)
		}
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Execution.RRThreshold <= 0 {
		return fmt.Errorf("%w: execution.rr_threshold must be positive", ErrInvalidConfig)
	}
	if _, err := risk.NewCalendar(c.Timezone, c.ActiveSessions()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Broker {
	case "paper", "logging":
	default:
		return fmt.Errorf("%w: broker must be paper or logging, got %q", ErrInvalidConfig, c.Broker)
	}
	switch c.DataSource.Type {
	case "mock", "yahoo":
	case "csv":
		if c.DataSource.CSVPath == "" {
			return fmt.Errorf("%w: data_source.csv_path is required for csv", ErrInvalidConfig)
		}
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("%w: data_source.base_url is required for rest", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.type %q", ErrInvalidConfig, c.DataSource.Type)
	}
	return nil
}

// ValidateTelegram checks the fields needed to send notifications.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", ErrInvalidConfig)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required", ErrInvalidConfig)
	}
	return nil
}
