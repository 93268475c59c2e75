package agent

import (
	"fmt"

	"KillZoneSentinel/internal/broker"
	"KillZoneSentinel/internal/config"
	"KillZoneSentinel/internal/metrics"
	"KillZoneSentinel/internal/recorder"
	"KillZoneSentinel/internal/risk"
	"KillZoneSentinel/internal/state"
)

// FromConfig assembles an agent from validated configuration. An empty stateFile keeps
// the account in memory, as backtests do.
func FromConfig(cfg *config.Config, stateFile string, rec recorder.Recorder, reg *metrics.Registry) (*Agent, error) {
	cal, err := risk.NewCalendar(cfg.Timezone, cfg.ActiveSessions())
	if err != nil {
		return nil, err
	}
	acct, err := risk.NewAccount(stateFile, cfg.InitialEquity, cal)
	if err != nil {
		return nil, fmt.Errorf("init account: %w", err)
	}
	st := state.New()

	var br broker.Broker
	switch cfg.Broker {
	case "logging":
		br = broker.NewLoggingBroker(st.Orders)
	default:
		br = broker.NewPaperBroker(st.Orders, cfg.Risk.TimeStopBars, cfg.Risk.ValuePerPoint)
	}

	return New(Options{
		Symbol:        cfg.Symbol,
		BaseTimeframe: cfg.BaseTimeframe,
		Bias:          cfg.Bias,
		Structure:     cfg.Structure,
		Execution:     cfg.Execution,
		Limits:        cfg.Risk,
		News:          cfg.NewsEvents,
		State:         st,
		Broker:        br,
		Account:       acct,
		Calendar:      cal,
		Recorder:      rec,
		Metrics:       reg,
	})
}
