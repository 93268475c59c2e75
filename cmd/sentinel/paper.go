package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/collector"
	"KillZoneSentinel/internal/metrics"
	"KillZoneSentinel/internal/notifier"
	"KillZoneSentinel/internal/recorder"
	"KillZoneSentinel/internal/scheduler"
	"KillZoneSentinel/internal/server"
)

func paperCmd(root *rootFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Poll live bars on a schedule and trade them on the paper broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if source != "" {
				cfg.DataSource.Type = source
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			rec, err := openRecorder(cfg.Database.SQLitePath)
			if err != nil {
				log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
				rec = recorder.NewNoopRecorder()
			}
			defer rec.Close()

			reg := metrics.NewRegistry()
			ag, err := agent.FromConfig(cfg, cfg.StateFile, rec, reg)
			if err != nil {
				return err
			}

			start := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Minute)
			fetcher, err := newFetcher(cfg, cfg.DataSource.Type, start, 1440, time.Now().UnixNano())
			if err != nil {
				return err
			}
			log.Info().Str("source", fetcher.Name()).Str("symbol", cfg.Symbol).Msg("data source")
			agg, err := collector.NewAggregator(cfg.Symbol, cfg.BaseTimeframe, cfg.AllTimeframes())
			if err != nil {
				return err
			}
			col := collector.NewCollector(fetcher, agg)

			var tn *notifier.TelegramNotifier
			if err := cfg.ValidateTelegram(); err == nil {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
			} else {
				log.Info().Msg("telegram not configured, notifications disabled")
			}

			cal := ag.Calendar()
			sched := scheduler.NewScheduler(ctx, col, ag, tn, rec, cfg.ExportDir, cal.Location())
			ag.Subscribe(sched)
			if err := sched.RegisterAll(cfg.Schedule.PollCron, cfg.Schedule.DailyCron, cfg.Schedule.WeeklyCron); err != nil {
				return err
			}

			if n, err := sched.RunPollNow(); err != nil {
				log.Warn().Err(err).Msg("initial history fetch failed")
			} else {
				log.Info().Int("bars", n).Msg("history loaded")
			}

			sched.Start()
			defer sched.Stop()

			if tn.Enabled() {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			srv := server.New(cfg.HTTP.Addr, ag, reg.Handler())
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			log.Info().Str("broker", cfg.Broker).Msg("paper session running, press Ctrl+C to stop")
			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("status server: %w", err)
				}
			}

			log.Info().Msg("shutdown signal received, stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("status server shutdown")
			}
			stats := ag.Stats()
			log.Info().Int("closed_trades", stats.ClosedTrades).Float64("total_pnl", stats.TotalPnL).
				Float64("equity", stats.FinalEquity).Msg("paper session stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "bar source: yahoo, rest, csv or mock (default from config)")
	return cmd
}
