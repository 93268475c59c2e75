package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/model"
)

// MockFetcher returns a deterministic seeded random walk for development and testing.
type MockFetcher struct {
	Price   float64
	Start   time.Time
	Periods int
	Seed    int64
	Bars    []model.Bar // when set, returned as-is
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol, timeframe string, since time.Time) ([]model.Bar, error) {
	bars := m.Bars
	if bars == nil {
		var err error
		bars, err = GenerateMockBars(symbol, timeframe, m.Start, m.Periods, m.Price, m.Seed)
		if err != nil {
			return nil, err
		}
	}
	return after(bars, since), nil
}

// GenerateMockBars builds count bars of a seeded random walk starting at start.
func GenerateMockBars(symbol, timeframe string, start time.Time, count int, price float64, seed int64) ([]model.Bar, error) {
	step, err := model.TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		price = 5000
	}
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.Bar, 0, count)
	last := price
	for i := 0; i < count; i++ {
		open := last
		move := rng.NormFloat64() * price * 0.0008
		closePx := math.Max(open+move, price*0.01)
		wick := math.Abs(rng.NormFloat64()) * price * 0.0004
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Time:      start.Add(time.Duration(i) * step),
			Open:      open,
			High:      math.Max(open, closePx) + wick,
			Low:       math.Min(open, closePx) - wick,
			Close:     closePx,
			Volume:    float64(500 + rng.Intn(1500)),
		})
		last = closePx
	}
	return bars, nil
}

func after(bars []model.Bar, since time.Time) []model.Bar {
	if since.IsZero() {
		return bars
	}
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.After(since) })
	return bars[i:]
}

// BarSink consumes base and aggregated bars.
type BarSink interface {
	OnBar(bar model.Bar) error
}

// Collector pulls base bars from a fetcher and pushes them through an aggregator.
type Collector struct {
	Fetcher    Fetcher
	Aggregator *Aggregator
	Symbol     string
	last       time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, agg *Aggregator) *Collector {
	return &Collector{Fetcher: fetcher, Aggregator: agg, Symbol: agg.Symbol}
}

// Collect fetches base bars newer than the last one seen and feeds them to sink.
// It returns the number of base bars processed.
func (c *Collector) Collect(ctx context.Context, sink BarSink) (int, error) {
	bars, err := c.Fetcher.FetchBars(ctx, c.Symbol, c.Aggregator.Base, c.last)
	if err != nil {
		return 0, fmt.Errorf("fetch %s bars: %w", c.Aggregator.Base, err)
	}
	n := 0
	for _, b := range bars {
		if !c.last.IsZero() && !b.Time.After(c.last) {
			continue
		}
		if err := dispatch(c.Aggregator, sink, b); err != nil {
			return n, err
		}
		c.last = b.Time
		n++
	}
	return n, nil
}

// Replay drives sink with every bar in order and flushes the aggregator at stream end.
// Bars that fail validation are skipped with a warning.
func Replay(sink BarSink, bars []model.Bar, agg *Aggregator) error {
	var last time.Time
	for _, b := range bars {
		if !last.IsZero() && b.Time.Before(last) {
			return fmt.Errorf("replay: bar at %s precedes %s", b.Time, last)
		}
		last = b.Time
		if err := dispatch(agg, sink, b); err != nil {
			return err
		}
	}
	for _, b := range agg.Flush() {
		if err := sink.OnBar(b); err != nil {
			return fmt.Errorf("replay flush %s: %w", b.Timeframe, err)
		}
	}
	return nil
}

func dispatch(agg *Aggregator, sink BarSink, b model.Bar) error {
	if b.Timeframe == "" {
		b.Timeframe = agg.Base
	}
	if err := b.Validate(); err != nil {
		log.Warn().Err(err).Time("time", b.Time).Msg("skipping malformed bar")
		return nil
	}
	out, err := agg.Add(b)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	for _, ob := range out {
		if err := sink.OnBar(ob); err != nil {
			return fmt.Errorf("dispatch %s bar at %s: %w", ob.Timeframe, ob.Time.Format(time.RFC3339), err)
		}
	}
	return nil
}
