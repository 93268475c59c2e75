package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrUnsupportedTimeframe is returned for labels outside the timeframe table.
var ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

// timeframeMinutes maps every supported timeframe label to its period length.
var timeframeMinutes = map[string]int{
	"1m":  1,
	"3m":  3,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"45m": 45,
	"1h":  60,
	"2h":  120,
	"3h":  180,
	"4h":  240,
	"6h":  360,
	"8h":  480,
	"12h": 720,
	"1d":  1440,
}

// TimeframeMinutes returns the period length of a timeframe label in minutes.
func TimeframeMinutes(tf string) (int, error) {
	m, ok := timeframeMinutes[tf]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, tf)
	}
	return m, nil
}

// TimeframeDuration returns the period length of a timeframe label.
func TimeframeDuration(tf string) (time.Duration, error) {
	m, err := TimeframeMinutes(tf)
	if err != nil {
		return 0, err
	}
	return time.Duration(m) * time.Minute, nil
}

// FloorTime floors t to the start of its period, counted from the Unix epoch.
func FloorTime(t time.Time, tf string) (time.Time, error) {
	m, err := TimeframeMinutes(tf)
	if err != nil {
		return time.Time{}, err
	}
	period := int64(m) * 60
	epoch := t.Unix()
	floored := epoch - epoch%period
	return time.Unix(floored, 0).In(t.Location()), nil
}

// Direction is the side of a bias, zone, signal or order.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Short {
		return Long
	}
	return Short
}

// Bar represents a single candlestick of one timeframe. Time is the period start.
type Bar struct {
	Symbol    string
	Timeframe string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Body is the absolute open-to-close move.
func (b Bar) Body() float64 {
	return math.Abs(b.Close - b.Open)
}

// Direction is long for a non-negative body, short otherwise.
func (b Bar) Direction() Direction {
	if b.Close >= b.Open {
		return Long
	}
	return Short
}

// Validate checks the OHLC envelope.
func (b Bar) Validate() error {
	if b.High < math.Max(b.Open, b.Close) {
		return fmt.Errorf("bar %s %s: high %.5f below body", b.Timeframe, b.Time.Format(time.RFC3339), b.High)
	}
	if b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("bar %s %s: low %.5f above body", b.Timeframe, b.Time.Format(time.RFC3339), b.Low)
	}
	return nil
}
