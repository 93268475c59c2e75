package strategy

import (
	"math"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/calculator"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// BiasConfig tunes the higher-timeframe bias stage.
type BiasConfig struct {
	PrimaryTimeframe     string   `yaml:"primary_timeframe"`
	ContextTimeframes    []string `yaml:"context_timeframes"`
	Lookback             int      `yaml:"lookback"`
	WindowSize           int      `yaml:"window_size"`
	WarmupBars           int      `yaml:"warmup_bars"`
	SwingLeft            int      `yaml:"swing_left"`
	SwingRight           int      `yaml:"swing_right"`
	DisplacementLookback int      `yaml:"displacement_lookback"`
	ConfidenceFloor      float64  `yaml:"confidence_floor"`
	ConfidenceCap        float64  `yaml:"confidence_cap"`
}

// DefaultBiasConfig returns the 1h bias with 4h/1d context.
func DefaultBiasConfig() BiasConfig {
	return BiasConfig{
		PrimaryTimeframe:     "1h",
		ContextTimeframes:    []string{"4h", "1d"},
		Lookback:             150,
		WindowSize:           300,
		WarmupBars:           10,
		SwingLeft:            2,
		SwingRight:           2,
		DisplacementLookback: 5,
		ConfidenceFloor:      0.55,
		ConfidenceCap:        0.99,
	}
}

// BiasEngine derives the directional bias from primary-timeframe bars.
type BiasEngine struct {
	cfg  BiasConfig
	bufs *windows
}

func NewBiasEngine(cfg BiasConfig) *BiasEngine {
	return &BiasEngine{cfg: cfg, bufs: newWindows(cfg.WindowSize)}
}

// Config returns the engine's tunables.
func (e *BiasEngine) Config() BiasConfig { return e.cfg }

// Update buffers bar and, for primary-timeframe bars, pushes a new snapshot into st.
// Context and unrelated bars return nil.
func (e *BiasEngine) Update(st *state.Analysis, bar model.Bar) *model.BiasSnapshot {
	if bar.Timeframe != e.cfg.PrimaryTimeframe && !containsTF(e.cfg.ContextTimeframes, bar.Timeframe) {
		return nil
	}
	w := e.bufs.push(bar)
	if bar.Timeframe != e.cfg.PrimaryTimeframe {
		return nil
	}

	snap := &model.BiasSnapshot{Symbol: bar.Symbol, Timeframe: bar.Timeframe, Time: bar.Time}
	if w.len() < e.cfg.WarmupBars {
		snap.Direction = bar.Direction()
		snap.Confidence = 0.5
		snap.Target = bar.High
		snap.Invalidation = bar.Low
		return st.PushBias(snap)
	}

	high, low, _ := calculator.DealingRange(w.bars, e.cfg.Lookback)
	mid := (high + low) / 2
	dir, broke := calculator.LastStructureBreak(w.bars, e.cfg.SwingLeft, e.cfg.SwingRight)
	if !broke {
		dir = model.Short
		if bar.Close >= mid {
			dir = model.Long
		}
	}

	target, invalidation := high, low
	if dir == model.Short {
		target, invalidation = low, high
	}
	for _, tf := range e.cfg.ContextTimeframes {
		cw := e.bufs.get(tf)
		if cw == nil || cw.len() == 0 {
			continue
		}
		ctxHigh, ctxLow, _ := calculator.DealingRange(cw.bars, e.cfg.Lookback)
		if dir == model.Long {
			target = math.Max(target, ctxHigh)
			invalidation = math.Max(invalidation, ctxLow)
		} else {
			target = math.Min(target, ctxLow)
			invalidation = math.Min(invalidation, ctxHigh)
		}
	}

	rng := math.Max(high-low, calculator.Epsilon)
	disp := calculator.DisplacementStrength(w.bars, e.cfg.DisplacementLookback)
	snap.Direction = dir
	snap.Confidence = calculator.Clamp(calculator.RangePosition(bar.Close, high, low)+disp/rng,
		e.cfg.ConfidenceFloor, e.cfg.ConfidenceCap)
	snap.Target = target
	snap.Invalidation = invalidation

	log.Debug().Str("tf", bar.Timeframe).Str("dir", string(dir)).Bool("structure_break", broke).
		Float64("confidence", snap.Confidence).Msg("bias updated")
	return st.PushBias(snap)
}
