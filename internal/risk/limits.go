// Package risk sizes orders, keeps the account ledger and gates new trades.
package risk

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidLimits is wrapped by Limits.Validate and NewCalendar failures.
var ErrInvalidLimits = errors.New("invalid risk limits")

// Limits are the per-account risk parameters.
type Limits struct {
	RiskPerTrade           float64 `yaml:"risk_per_trade_pct"`
	MaxDailyDrawdown       float64 `yaml:"max_daily_drawdown_pct"`
	MaxWeeklyDrawdown      float64 `yaml:"max_weekly_drawdown_pct"`
	MaxTradesPerDay        int     `yaml:"max_trades_per_day"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	RRTarget               float64 `yaml:"rr_target"`
	TimeStopBars           int     `yaml:"time_stop_bars"`
	ExpiryMinutes          int     `yaml:"expiry_minutes"`
	ValuePerPoint          float64 `yaml:"value_per_point"`
	NewsHaltMinutes        int     `yaml:"news_halt_minutes"`
}

func DefaultLimits() Limits {
	return Limits{
		RiskPerTrade:           0.02,
		MaxDailyDrawdown:       0.06,
		MaxWeeklyDrawdown:      0.10,
		MaxTradesPerDay:        4,
		MaxConcurrentPositions: 1,
		RRTarget:               2.0,
		TimeStopBars:           20,
		ExpiryMinutes:          30,
		ValuePerPoint:          1.0,
		NewsHaltMinutes:        5,
	}
}

// Validate checks fractions are in (0,1] and counts are positive.
func (l Limits) Validate() error {
	for name, v := range map[string]float64{
		"risk_per_trade_pct":      l.RiskPerTrade,
		"max_daily_drawdown_pct":  l.MaxDailyDrawdown,
		"max_weekly_drawdown_pct": l.MaxWeeklyDrawdown,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v must be in (0,1]", ErrInvalidLimits, name, v)
		}
	}
	switch {
	case l.MaxTradesPerDay <= 0:
		return fmt.Errorf("%w: max_trades_per_day must be positive", ErrInvalidLimits)
	case l.MaxConcurrentPositions <= 0:
		return fmt.Errorf("%w: max_concurrent_positions must be positive", ErrInvalidLimits)
	case l.TimeStopBars <= 0:
		return fmt.Errorf("%w: time_stop_bars must be positive", ErrInvalidLimits)
	case l.ExpiryMinutes <= 0:
		return fmt.Errorf("%w: expiry_minutes must be positive", ErrInvalidLimits)
	case l.ValuePerPoint <= 0:
		return fmt.Errorf("%w: value_per_point must be positive", ErrInvalidLimits)
	case l.NewsHaltMinutes < 0:
		return fmt.Errorf("%w: news_halt_minutes must not be negative", ErrInvalidLimits)
	}
	return nil
}

// Expiry is the order lifetime.
func (l Limits) Expiry() time.Duration {
	return time.Duration(l.ExpiryMinutes) * time.Minute
}
