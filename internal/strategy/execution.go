package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/calculator"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// ExecutionConfig tunes the low-timeframe entry stage.
type ExecutionConfig struct {
	PrimaryTimeframe     string   `yaml:"primary_timeframe"`
	ContextTimeframes    []string `yaml:"context_timeframes"`
	Lookback             int      `yaml:"lookback"`
	WindowSize           int      `yaml:"window_size"`
	MinBars              int      `yaml:"min_bars"`
	SweepLookback        int      `yaml:"sweep_lookback"`
	SweepWindow          int      `yaml:"sweep_window"`
	ConfirmationLookback int      `yaml:"confirmation_lookback"`
	RRThreshold          float64  `yaml:"rr_threshold"`
	StopBufferMin        float64  `yaml:"stop_buffer_min"`
	StopBufferFraction   float64  `yaml:"stop_buffer_fraction"`
}

func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		PrimaryTimeframe:     "1m",
		ContextTimeframes:    []string{"5m"},
		Lookback:             50,
		WindowSize:           200,
		MinBars:              15,
		SweepLookback:        30,
		SweepWindow:          3,
		ConfirmationLookback: 12,
		RRThreshold:          2.0,
		StopBufferMin:        0.1,
		StopBufferFraction:   0.1,
	}
}

// ExecutionEngine confirms sweep, shift and gap inside the active zone.
type ExecutionEngine struct {
	cfg  ExecutionConfig
	bufs *windows
}

func NewExecutionEngine(cfg ExecutionConfig) *ExecutionEngine {
	return &ExecutionEngine{cfg: cfg, bufs: newWindows(max(cfg.WindowSize, cfg.Lookback))}
}

func (e *ExecutionEngine) Config() ExecutionConfig { return e.cfg }

// Evaluate buffers bar and returns a signal when every confirmation passes on a primary bar.
func (e *ExecutionEngine) Evaluate(st *state.Analysis, bar model.Bar) *model.ExecutionSignal {
	if bar.Timeframe != e.cfg.PrimaryTimeframe && !containsTF(e.cfg.ContextTimeframes, bar.Timeframe) {
		return nil
	}
	w := e.bufs.push(bar)
	if bar.Timeframe != e.cfg.PrimaryTimeframe || w.len() < e.cfg.MinBars {
		return nil
	}

	bias := st.LatestBias()
	zone := st.ActiveStructure(bar.Time)
	if bias == nil || zone == nil || zone.Direction != bias.Direction || !zone.Contains(bar.Close) {
		return nil
	}
	dir := bias.Direction
	bars := w.bars

	if !calculator.LiquiditySweep(bars, dir, e.cfg.SweepLookback, e.cfg.SweepWindow) {
		return nil
	}
	if !calculator.MarketStructureShift(bars, dir, e.cfg.ConfirmationLookback) {
		return nil
	}
	for _, tf := range e.cfg.ContextTimeframes {
		cw := e.bufs.get(tf)
		if cw == nil {
			continue
		}
		if last, ok := cw.last(); ok && last.Direction() != dir {
			log.Debug().Str("tf", tf).Msg("context disagrees with bias")
			return nil
		}
	}
	gap, ok := calculator.DetectFVG(bars, dir)
	if !ok {
		return nil
	}

	entry := gap.Mid()
	extreme := calculator.SliceExtreme(bars, dir, e.cfg.ConfirmationLookback)
	buffer := math.Max(e.cfg.StopBufferMin, math.Abs(entry-extreme)*e.cfg.StopBufferFraction)
	stop := extreme - dir.Sign()*buffer

	target := bias.Target
	if target == 0 {
		high, low, _ := calculator.DealingRange(bars, e.cfg.Lookback)
		target = high
		if dir == model.Short {
			target = low
		}
	}
	if dir == model.Long {
		target = math.Max(target, zone.High)
	} else {
		target = math.Min(target, zone.Low)
	}

	if (stop-entry)*dir.Sign() >= 0 || (target-entry)*dir.Sign() <= 0 {
		return nil
	}
	rr := calculator.RewardRisk(entry, stop, target)
	if rr < e.cfg.RRThreshold {
		log.Debug().Float64("rr", rr).Msg("setup below reward:risk threshold")
		return nil
	}

	return st.PushSignal(&model.ExecutionSignal{
		Symbol:      bar.Symbol,
		Timeframe:   bar.Timeframe,
		Time:        bar.Time,
		Direction:   dir,
		Entry:       entry,
		Stop:        stop,
		Target:      target,
		RR:          rr,
		BiasID:      bias.ID,
		StructureID: zone.ID,
		Reason:      fmt.Sprintf("Sweep+MSS+FVG (%s)", bar.Timeframe),
	})
}
