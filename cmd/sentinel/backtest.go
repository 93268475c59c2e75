package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/collector"
	"KillZoneSentinel/internal/model"
)

type backtestSummary struct {
	agent.Stats
	Bars  int    `json:"bars"`
	From  string `json:"from"`
	To    string `json:"to"`
	LogDB string `json:"log_db"`
}

func backtestCmd(root *rootFlags) *cobra.Command {
	var (
		source  string
		csvPath string
		start   string
		periods int
		seed    int64
		outDir  string
		noDB    bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical bars through the agent and summarize the trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if source != "" {
				cfg.DataSource.Type = source
			}
			if csvPath != "" {
				cfg.DataSource.CSVPath = csvPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			from, err := parseStart(start)
			if err != nil {
				return err
			}
			fetcher, err := newFetcher(cfg, cfg.DataSource.Type, from, periods, seed)
			if err != nil {
				return err
			}
			bars, err := fetcher.FetchBars(cmd.Context(), cfg.Symbol, cfg.BaseTimeframe, time.Time{})
			if err != nil {
				return fmt.Errorf("fetch bars from %s: %w", fetcher.Name(), err)
			}
			bars = baseOnly(bars, cfg.BaseTimeframe)
			if len(bars) == 0 {
				return fmt.Errorf("no %s bars from %s", cfg.BaseTimeframe, fetcher.Name())
			}

			stamp := time.Now().UTC().Format("20060102-150405")
			base := filepath.Join(outDir, fmt.Sprintf("%s-%s", cfg.Symbol, stamp))
			dbPath := ""
			if !noDB {
				dbPath = base + ".db"
			}
			rec, err := openRecorder(dbPath)
			if err != nil {
				return err
			}
			defer rec.Close()

			ag, err := agent.FromConfig(cfg, "", rec, nil)
			if err != nil {
				return err
			}
			agg, err := collector.NewAggregator(cfg.Symbol, cfg.BaseTimeframe, cfg.AllTimeframes())
			if err != nil {
				return err
			}
			log.Info().Str("source", fetcher.Name()).Int("bars", len(bars)).Time("from", bars[0].Time).
				Time("to", bars[len(bars)-1].Time).Msg("backtest starting")
			if err := collector.Replay(ag, bars, agg); err != nil {
				return err
			}

			summary := backtestSummary{
				Stats: ag.Stats(),
				Bars:  len(bars),
				From:  bars[0].Time.Format(time.RFC3339),
				To:    bars[len(bars)-1].Time.Format(time.RFC3339),
				LogDB: dbPath,
			}
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(base+".json", out, 0o644); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if err := writeTrades(base+".csv", ag.Orders()); err != nil {
				return fmt.Errorf("write trades: %w", err)
			}
			log.Info().Str("summary", base+".json").Str("trades", base+".csv").Msg("backtest complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "bar source: csv, mock, yahoo or rest (default from config)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file for the csv source")
	cmd.Flags().StringVar(&start, "start", "2024-03-04T00:00:00Z", "first bar time for the mock source (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&periods, "periods", 5*1440, "number of base bars for the mock source")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the mock source")
	cmd.Flags().StringVar(&outDir, "out", filepath.Join("data", "backtests"), "directory for summary, trades and event log")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "skip the sqlite event log")
	return cmd
}

func parseStart(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start %q", s)
	}
	return t, nil
}

func baseOnly(bars []model.Bar, base string) []model.Bar {
	out := bars[:0:0]
	for _, b := range bars {
		if b.Timeframe == "" || b.Timeframe == base {
			out = append(out, b)
		}
	}
	if skipped := len(bars) - len(out); skipped > 0 {
		log.Warn().Int("skipped", skipped).Str("base", base).Msg("ignoring bars of other timeframes")
	}
	return out
}

// writeTrades writes one row per closed order.
func writeTrades(path string, orders []model.OrderPlan) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	w := csv.NewWriter(fh)
	header := []string{"order_id", "direction", "entry", "stop", "target", "size", "filled_at", "closed_at", "exit_price", "exit_reason", "pnl", "r", "bars_in_trade"}
	if err := w.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, o := range orders {
		if !o.Closed() {
			continue
		}
		row := []string{
			o.ID, string(o.Direction), f(o.Entry), f(o.Stop), f(o.Target), strconv.Itoa(o.Size),
			o.FilledAt.Format(time.RFC3339), o.ClosedAt.Format(time.RFC3339), f(o.ExitPrice), o.ExitReason,
			f(o.PnL), strconv.FormatFloat(o.R, 'f', 3, 64), strconv.Itoa(o.BarsHeld),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
