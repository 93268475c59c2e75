package strategy

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/calculator"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// StructureConfig tunes the mid-timeframe zone stage.
type StructureConfig struct {
	Timeframe      string `yaml:"timeframe"`
	Lookback       int    `yaml:"lookback"`
	WindowSize     int    `yaml:"window_size"`
	MinBars        int    `yaml:"min_bars"`
	ExpiryMultiple int    `yaml:"expiry_multiple"`
}

func DefaultStructureConfig() StructureConfig {
	return StructureConfig{Timeframe: "15m", Lookback: 40, WindowSize: 100, MinBars: 12, ExpiryMultiple: 4}
}

// StructureEngine turns the dealing range into a premium/discount zone aligned with the bias.
type StructureEngine struct {
	cfg    StructureConfig
	period time.Duration
	buf    *window
}

// NewStructureEngine fails on an unknown timeframe.
func NewStructureEngine(cfg StructureConfig) (*StructureEngine, error) {
	d, err := model.TimeframeDuration(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	return &StructureEngine{cfg: cfg, period: d, buf: newWindow(cfg.WindowSize)}, nil
}

func (e *StructureEngine) Config() StructureConfig { return e.cfg }

// Update buffers bar and pushes a zone once enough bars are available.
func (e *StructureEngine) Update(st *state.Analysis, bar model.Bar) *model.StructureZone {
	if bar.Timeframe != e.cfg.Timeframe {
		return nil
	}
	e.buf.push(bar)
	if e.buf.len() < e.cfg.MinBars {
		return nil
	}

	dir := model.Long
	if b := st.LatestBias(); b != nil {
		dir = b.Direction
	}

	high, low, _ := calculator.DealingRange(e.buf.bars, e.cfg.Lookback)
	zLow, zHigh := calculator.RetracementBand(high, low, dir)
	gap, hasGap := calculator.FindFVG(e.buf.bars, dir, e.cfg.Lookback)
	if hasGap {
		zLow = math.Min(zLow, gap.Low)
		zHigh = math.Max(zHigh, gap.High)
	}

	zone := st.PushStructure(&model.StructureZone{
		Symbol:    bar.Symbol,
		Timeframe: bar.Timeframe,
		Time:      bar.Time,
		Direction: dir,
		Low:       zLow,
		High:      zHigh,
		ExpiresAt: bar.Time.Add(time.Duration(e.cfg.ExpiryMultiple) * e.period),
	})
	log.Debug().Str("dir", string(dir)).Float64("low", zone.Low).Float64("high", zone.High).
		Bool("fvg", hasGap).Msg("structure zone")
	return zone
}
