package calculator

import "KillZoneSentinel/internal/model"

// FVG is a three-bar fair value gap. Start is the index of its first bar.
type FVG struct {
	Direction    model.Direction
	Low          float64
	High         float64
	Displacement float64
	Start        int
}

// Mid is the gap midpoint, used as the limit entry.
func (g FVG) Mid() float64 {
	return (g.Low + g.High) / 2
}

// fvgAt checks the bars at i, i+1, i+2. A long gap leaves the first bar's high below the
// third bar's low with a net-positive middle body; short is mirrored.
func fvgAt(bars []model.Bar, i int, dir model.Direction) (FVG, bool) {
	c1, c2, c3 := bars[i], bars[i+1], bars[i+2]
	if dir == model.Long {
		disp := c2.Close - c2.Open
		if c1.High >= c3.Low || disp <= 0 {
			return FVG{}, false
		}
		return FVG{Direction: dir, Low: c1.High, High: c3.Low, Displacement: disp, Start: i}, true
	}
	disp := c2.Open - c2.Close
	if c1.Low <= c3.High || disp <= 0 {
		return FVG{}, false
	}
	return FVG{Direction: dir, Low: c3.High, High: c1.Low, Displacement: disp, Start: i}, true
}

// DetectFVG checks only the last three bars.
func DetectFVG(bars []model.Bar, dir model.Direction) (FVG, bool) {
	if len(bars) < 3 {
		return FVG{}, false
	}
	return fvgAt(bars, len(bars)-3, dir)
}

// FindFVG returns the most recent gap aligned with dir within the last lookback bars.
func FindFVG(bars []model.Bar, dir model.Direction, lookback int) (FVG, bool) {
	start := 0
	if lookback > 0 && len(bars) > lookback {
		start = len(bars) - lookback
	}
	for i := len(bars) - 3; i >= start; i-- {
		if g, ok := fvgAt(bars, i, dir); ok {
			return g, true
		}
	}
	return FVG{}, false
}

// LiquiditySweep reports whether one of the last window bars pierced the extreme of the
// lookback bars before it (below for long, above for short) while the final bar closed
// back in dir.
func LiquiditySweep(bars []model.Bar, dir model.Direction, lookback, window int) bool {
	if window <= 0 || len(bars) < window+2 {
		return false
	}
	recent := bars[len(bars)-window:]
	if recent[len(recent)-1].Direction() != dir {
		return false
	}
	start := max(len(bars)-window-lookback, 0)
	historical := bars[start : len(bars)-window]
	if len(historical) == 0 {
		return false
	}

	if dir == model.Long {
		prior := historical[0].Low
		for _, b := range historical {
			prior = min(prior, b.Low)
		}
		for _, b := range recent {
			if b.Low < prior {
				return true
			}
		}
		return false
	}
	prior := historical[0].High
	for _, b := range historical {
		prior = max(prior, b.High)
	}
	for _, b := range recent {
		if b.High > prior {
			return true
		}
	}
	return false
}

// MarketStructureShift reports whether the final close of the last lookback bars broke the
// internal high (long) or internal low (short) of the bars before it.
func MarketStructureShift(bars []model.Bar, dir model.Direction, lookback int) bool {
	if lookback < 2 || len(bars) < lookback+2 {
		return false
	}
	slice := bars[len(bars)-lookback:]
	inner := slice[:len(slice)-1]
	last := slice[len(slice)-1].Close
	if dir == model.Long {
		high := inner[0].High
		for _, b := range inner {
			high = max(high, b.High)
		}
		return last > high
	}
	low := inner[0].Low
	for _, b := range inner {
		low = min(low, b.Low)
	}
	return last < low
}

// SliceExtreme returns the lowest low (long) or highest high (short) of the last lookback bars.
func SliceExtreme(bars []model.Bar, dir model.Direction, lookback int) float64 {
	start := max(len(bars)-lookback, 0)
	slice := bars[start:]
	if dir == model.Long {
		v := slice[0].Low
		for _, b := range slice {
			v = min(v, b.Low)
		}
		return v
	}
	v := slice[0].High
	for _, b := range slice {
		v = max(v, b.High)
	}
	return v
}
