package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KillZoneSentinel/internal/model"
)

func bar(o, h, l, c float64) model.Bar {
	return model.Bar{Timeframe: "1m", Time: time.Unix(0, 0), Open: o, High: h, Low: l, Close: c}
}

func TestDealingRange(t *testing.T) {
	bars := []model.Bar{bar(10, 20, 5, 12), bar(12, 14, 11, 13), bar(13, 15, 12, 14)}

	high, low, err := DealingRange(bars, 2)
	require.NoError(t, err)
	assert.Equal(t, 15.0, high)
	assert.Equal(t, 11.0, low)

	high, low, err = DealingRange(bars, 50)
	require.NoError(t, err)
	assert.Equal(t, 20.0, high)
	assert.Equal(t, 5.0, low)

	_, _, err = DealingRange(nil, 5)
	assert.Error(t, err)
}

func TestRetracementBand(t *testing.T) {
	lo, hi := RetracementBand(200, 100, model.Long)
	assert.InDelta(t, 162, lo, 1e-9)
	assert.InDelta(t, 179, hi, 1e-9)

	lo, hi = RetracementBand(200, 100, model.Short)
	assert.InDelta(t, 121, lo, 1e-9)
	assert.InDelta(t, 138, hi, 1e-9)

	lo, hi = RetracementBand(100, 100, model.Long)
	assert.Equal(t, 100.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestRewardRisk(t *testing.T) {
	assert.InDelta(t, 2.0, RewardRisk(100, 95, 110), 1e-9)
	// zero stop distance is floored, not a division by zero
	assert.Greater(t, RewardRisk(100, 100, 101), 1e5)
}

func TestDisplacementStrength(t *testing.T) {
	bars := []model.Bar{bar(10, 11, 9, 10.5), bar(10, 12, 9, 12), bar(12, 12, 10, 10)}
	assert.InDelta(t, 2.0, DisplacementStrength(bars, 2), 1e-9)
	assert.InDelta(t, 4.5/3, DisplacementStrength(bars, 10), 1e-9)
	assert.Equal(t, 0.0, DisplacementStrength(nil, 5))
}

func TestDetectFVG(t *testing.T) {
	tests := []struct {
		name string
		bars []model.Bar
		dir  model.Direction
		ok   bool
		low  float64
		high float64
	}{
		{
			name: "bullish gap",
			bars: []model.Bar{bar(100, 101, 99, 100.5), bar(100.5, 105, 100.4, 104.8), bar(104.8, 106, 102, 105.5)},
			dir:  model.Long, ok: true, low: 101, high: 102,
		},
		{
			name: "overlapping ranges",
			bars: []model.Bar{bar(100, 103, 99, 102), bar(102, 105, 101, 104), bar(104, 106, 102.5, 105)},
			dir:  model.Long, ok: false,
		},
		{
			name: "bearish middle body rejects long",
			bars: []model.Bar{bar(100, 101, 99, 100.5), bar(105, 105.2, 100.4, 104), bar(104.8, 106, 102, 105.5)},
			dir:  model.Long, ok: false,
		},
		{
			name: "bearish gap",
			bars: []model.Bar{bar(100, 101, 99, 99.5), bar(99.5, 99.6, 94, 94.2), bar(94.2, 97, 93, 93.5)},
			dir:  model.Short, ok: true, low: 97, high: 99,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := DetectFVG(tt.bars, tt.dir)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.low, g.Low)
				assert.Equal(t, tt.high, g.High)
				assert.LessOrEqual(t, g.Low, g.High)
			}
		})
	}
}

func TestFindFVG_MostRecent(t *testing.T) {
	bars := []model.Bar{
		bar(100, 101, 99, 100.5), bar(100.5, 105, 100.4, 104.8), bar(104.8, 106, 102, 105.5),
		bar(105.5, 106, 105, 105.8), bar(105.8, 110, 105.7, 109.9), bar(109.9, 111, 107, 110),
	}
	g, ok := FindFVG(bars, model.Long, 10)
	require.True(t, ok)
	assert.Equal(t, 3, g.Start)
	assert.Equal(t, 106.0, g.Low)
	assert.Equal(t, 107.0, g.High)

	_, ok = FindFVG(bars, model.Short, 10)
	assert.False(t, ok)
}

func flat(n int, price float64) []model.Bar {
	out := make([]model.Bar, n)
	for i := range out {
		out[i] = bar(price, price+0.5, price-0.5, price)
	}
	return out
}

func TestLiquiditySweep(t *testing.T) {
	bars := append(flat(20, 100), bar(100, 100.2, 98, 99), bar(99, 100, 98.8, 99.8), bar(99.8, 101, 99.5, 100.9))
	assert.True(t, LiquiditySweep(bars, model.Long, 30, 3))
	assert.False(t, LiquiditySweep(bars, model.Short, 30, 3))

	// final bar closes against the bias
	bad := append(flat(20, 100), bar(100, 100.2, 98, 99), bar(99, 100, 98.8, 99.8), bar(99.8, 100, 99, 99.1))
	assert.False(t, LiquiditySweep(bad, model.Long, 30, 3))

	// no pierce of the prior low
	none := append(flat(20, 100), bar(100, 100.2, 99.6, 100.1))
	assert.False(t, LiquiditySweep(none, model.Long, 30, 3))
}

func TestMarketStructureShift(t *testing.T) {
	bars := append(flat(14, 100), bar(100, 102, 99.9, 101.8))
	assert.True(t, MarketStructureShift(bars, model.Long, 12))
	assert.False(t, MarketStructureShift(bars, model.Short, 12))

	assert.False(t, MarketStructureShift(flat(5, 100), model.Long, 12))
}

func TestLastStructureBreak(t *testing.T) {
	// two swing highs at 105 and 104, then a close through 105
	bars := []model.Bar{
		bar(100, 101, 99, 100), bar(100, 102, 99.5, 101), bar(101, 105, 100, 104), bar(104, 103, 100, 101),
		bar(101, 102, 98, 99), bar(99, 100, 97, 98), bar(98, 104, 97.5, 103), bar(103, 103.5, 101, 102),
		bar(102, 102.5, 100, 101), bar(101, 107, 100.5, 106.5),
	}
	for i := range bars {
		bars[i].High = max(bars[i].High, bars[i].Open, bars[i].Close)
	}
	dir, ok := LastStructureBreak(bars, 2, 2)
	require.True(t, ok)
	assert.Equal(t, model.Long, dir)

	_, ok = LastStructureBreak(flat(4, 100), 2, 2)
	assert.False(t, ok)
}
