package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"KillZoneSentinel/internal/collector"
	"KillZoneSentinel/internal/config"
	"KillZoneSentinel/internal/recorder"
)

type rootFlags struct {
	configPath string
	logLevel   string
	pretty     bool
}

// Execute builds the command tree and runs it.
func Execute(ctx context.Context) error {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Kill-zone intraday strategy agent: backtests and paper trading",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultPath, "path to the YAML config")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.pretty, "pretty", true, "human-readable console logs instead of JSON")

	root.AddCommand(backtestCmd(flags), paperCmd(flags))
	return root.ExecuteContext(ctx)
}

// load reads and validates the config, then configures logging from it.
func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	setupLogging(cfg.Log.Level, f.pretty || cfg.Log.Pretty)
	return cfg, nil
}

// newFetcher picks the bar source. Network sources are rate limited and circuit broken.
func newFetcher(cfg *config.Config, source string, start time.Time, periods int, seed int64) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch source {
	case "mock":
		return &collector.MockFetcher{Price: 2400, Start: start, Periods: periods, Seed: seed}, nil
	case "csv":
		if ds.CSVPath == "" {
			return nil, fmt.Errorf("csv source needs a path")
		}
		return &collector.CSVFetcher{Path: ds.CSVPath}, nil
	case "yahoo":
		return collector.NewGuardedFetcher(collector.NewYahooFetcher(cfg.Proxy), ds.RateLimit, ds.BreakerFailures, ds.BreakerCooldown), nil
	case "rest":
		if ds.BaseURL == "" {
			return nil, fmt.Errorf("rest source needs data_source.base_url")
		}
		inner := collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy)
		return collector.NewGuardedFetcher(inner, ds.RateLimit, ds.BreakerFailures, ds.BreakerCooldown), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", source)
	}
}

func openRecorder(path string) (recorder.Recorder, error) {
	if path == "" {
		return recorder.NewNoopRecorder(), nil
	}
	rec, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
