package calculator

import "KillZoneSentinel/internal/model"

// SwingPoint is a local extreme at Index within the scanned bars.
type SwingPoint struct {
	Index int
	Price float64
}

func isSwingHigh(bars []model.Bar, idx, left, right int) bool {
	pivot := bars[idx].High
	for i := max(idx-left, 0); i < idx; i++ {
		if bars[i].High > pivot {
			return false
		}
	}
	for i := idx + 1; i <= idx+right && i < len(bars); i++ {
		if bars[i].High >= pivot {
			return false
		}
	}
	return true
}

func isSwingLow(bars []model.Bar, idx, left, right int) bool {
	pivot := bars[idx].Low
	for i := max(idx-left, 0); i < idx; i++ {
		if bars[i].Low < pivot {
			return false
		}
	}
	for i := idx + 1; i <= idx+right && i < len(bars); i++ {
		if bars[i].Low <= pivot {
			return false
		}
	}
	return true
}

// SwingPoints returns up to maxPoints of the most recent swing highs and lows. A swing high
// is at least as high as its left neighbours and strictly higher than its right neighbours.
func SwingPoints(bars []model.Bar, left, right, maxPoints int) (highs, lows []SwingPoint) {
	for idx := left; idx < len(bars)-right; idx++ {
		if isSwingHigh(bars, idx, left, right) {
			highs = append(highs, SwingPoint{Index: idx, Price: bars[idx].High})
		}
		if isSwingLow(bars, idx, left, right) {
			lows = append(lows, SwingPoint{Index: idx, Price: bars[idx].Low})
		}
	}
	if maxPoints > 0 {
		if len(highs) > maxPoints {
			highs = highs[len(highs)-maxPoints:]
		}
		if len(lows) > maxPoints {
			lows = lows[len(lows)-maxPoints:]
		}
	}
	return highs, lows
}

// LastStructureBreak returns the direction implied by the final close breaking the highest
// prior swing high or the lowest prior swing low. ok is false when no break exists.
func LastStructureBreak(bars []model.Bar, left, right int) (dir model.Direction, ok bool) {
	if len(bars) < left+right+3 {
		return "", false
	}
	highs, lows := SwingPoints(bars, left, right, 20)
	if len(highs) == 0 || len(lows) == 0 {
		return "", false
	}

	recentHigh := highs[len(highs)-1].Price
	if len(highs) > 1 {
		recentHigh = highs[0].Price
		for _, h := range highs[:len(highs)-1] {
			recentHigh = max(recentHigh, h.Price)
		}
	}
	recentLow := lows[len(lows)-1].Price
	if len(lows) > 1 {
		recentLow = lows[0].Price
		for _, l := range lows[:len(lows)-1] {
			recentLow = min(recentLow, l.Price)
		}
	}

	last := bars[len(bars)-1].Close
	switch {
	case last > recentHigh:
		return model.Long, true
	case last < recentLow:
		return model.Short, true
	}
	return "", false
}
