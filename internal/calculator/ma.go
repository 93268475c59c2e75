package calculator

import (
	"errors"

	"KillZoneSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// DisplacementStrength is the average candle body over the last lookback bars,
// or over all bars when fewer are available.
func DisplacementStrength(bars []model.Bar, lookback int) float64 {
	if len(bars) == 0 {
		return 0
	}
	if lookback > len(bars) || lookback <= 0 {
		lookback = len(bars)
	}
	avg, err := CalculateSMA(extractBodies(bars), lookback)
	if err != nil {
		return 0
	}
	return avg
}

func extractBodies(bars []model.Bar) []float64 {
	bodies := make([]float64, len(bars))
	for i, b := range bars {
		bodies[i] = b.Body()
	}
	return bodies
}
