package calculator

import (
	"errors"
	"math"

	"KillZoneSentinel/internal/model"
)

// Epsilon floors every divisor in ratio computations.
const Epsilon = 1e-6

var errNoBars = errors.New("no bars provided")

// DealingRange scans the most recent lookback bars and returns the high and low.
func DealingRange(bars []model.Bar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errNoBars
	}
	n := len(bars)
	start := n - lookback
	if start < 0 || lookback <= 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RetracementBand returns the 62%-79% band of the dealing range on the side of the
// bias target: measured up from the low for long, down from the high for short.
func RetracementBand(high, low float64, dir model.Direction) (bandLow, bandHigh float64) {
	r := high - low
	if r <= 0 {
		return low, high
	}
	if dir == model.Long {
		return low + r*0.62, low + r*0.79
	}
	return high - r*0.79, high - r*0.62
}

// RangePosition returns the distance of price from the range midpoint as a fraction
// of the whole range (0 at the midpoint, 0.5 at either extreme).
func RangePosition(price, high, low float64) float64 {
	mid := (high + low) / 2
	return math.Abs(price-mid) / math.Max(high-low, Epsilon)
}

// RewardRisk returns |target-entry| / |entry-stop| with the divisor floored at Epsilon.
func RewardRisk(entry, stop, target float64) float64 {
	return math.Abs(target-entry) / math.Max(math.Abs(entry-stop), Epsilon)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
