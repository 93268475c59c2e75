package collector

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"KillZoneSentinel/internal/model"
)

// ErrBaseTimeframe is returned when the base timeframe is not the shortest target.
var ErrBaseTimeframe = errors.New("base timeframe must be the shortest target timeframe")

// bucket accumulates base bars into one higher-timeframe bar.
type bucket struct {
	timeframe string
	period    time.Time
	bar       model.Bar
	started   bool
}

func (b *bucket) seed(bar model.Bar, period time.Time) {
	b.period = period
	b.bar = model.Bar{
		Symbol:    bar.Symbol,
		Timeframe: b.timeframe,
		Time:      period,
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    bar.Volume,
	}
	b.started = true
}

// update folds bar into the bucket and returns the finished bar when its period rolled over.
func (b *bucket) update(bar model.Bar) (model.Bar, bool, error) {
	period, err := model.FloorTime(bar.Time, b.timeframe)
	if err != nil {
		return model.Bar{}, false, err
	}
	if !b.started {
		b.seed(bar, period)
		return model.Bar{}, false, nil
	}
	if period.Equal(b.period) {
		if bar.High > b.bar.High {
			b.bar.High = bar.High
		}
		if bar.Low < b.bar.Low {
			b.bar.Low = bar.Low
		}
		b.bar.Close = bar.Close
		b.bar.Volume += bar.Volume
		return model.Bar{}, false, nil
	}
	done := b.bar
	b.seed(bar, period)
	return done, true, nil
}

// Aggregator buckets a base-timeframe stream into higher timeframes.
type Aggregator struct {
	Symbol  string
	Base    string
	ordered []string
	buckets []*bucket
}

// NewAggregator validates the timeframe set and builds one bucket per non-base timeframe.
func NewAggregator(symbol, base string, targets []string) (*Aggregator, error) {
	seen := make(map[string]bool)
	var ordered []string
	for _, tf := range append([]string{base}, targets...) {
		if _, err := model.TimeframeMinutes(tf); err != nil {
			return nil, err
		}
		if !seen[tf] {
			seen[tf] = true
			ordered = append(ordered, tf)
		}
	}
	if !contains(targets, base) {
		return nil, fmt.Errorf("%w: %s not in %v", ErrBaseTimeframe, base, targets)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		mi, _ := model.TimeframeMinutes(ordered[i])
		mj, _ := model.TimeframeMinutes(ordered[j])
		return mi < mj
	})
	if ordered[0] != base {
		return nil, fmt.Errorf("%w: %s is longer than %s", ErrBaseTimeframe, base, ordered[0])
	}

	a := &Aggregator{Symbol: symbol, Base: base, ordered: ordered}
	for _, tf := range ordered[1:] {
		a.buckets = append(a.buckets, &bucket{timeframe: tf})
	}
	return a, nil
}

// Timeframes returns every produced timeframe, shortest first.
func (a *Aggregator) Timeframes() []string {
	return append([]string(nil), a.ordered...)
}

// Add folds a base bar into every bucket and returns the base bar followed by the
// higher-timeframe bars it completed, shortest period first.
func (a *Aggregator) Add(bar model.Bar) ([]model.Bar, error) {
	if bar.Timeframe != a.Base {
		return nil, fmt.Errorf("aggregator expects base timeframe %s, got %s", a.Base, bar.Timeframe)
	}
	out := []model.Bar{bar}
	for _, b := range a.buckets {
		done, ok, err := b.update(bar)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, done)
		}
	}
	return out, nil
}

// Flush emits every partially built bucket. Only call it at stream end.
func (a *Aggregator) Flush() []model.Bar {
	var out []model.Bar
	for _, b := range a.buckets {
		if b.started {
			out = append(out, b.bar)
			b.started = false
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
