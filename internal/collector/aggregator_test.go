package collector

import (
	"errors"
	"testing"
	"time"

	"KillZoneSentinel/internal/model"
)

func minuteBars(start time.Time, n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		p := 100 + float64(i%7)
		bars[i] = model.Bar{
			Symbol: "NQ", Timeframe: "1m", Time: start.Add(time.Duration(i) * time.Minute),
			Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: float64(10 + i),
		}
	}
	return bars
}

func runAggregator(t *testing.T, bars []model.Bar) []model.Bar {
	t.Helper()
	agg, err := NewAggregator("NQ", "1m", []string{"15m", "1m", "5m"})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	var out []model.Bar
	for _, b := range bars {
		got, err := agg.Add(b)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		out = append(out, got...)
	}
	return append(out, agg.Flush()...)
}

func TestAggregator_VolumeConserved(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	bars := minuteBars(start, 32)
	out := runAggregator(t, bars)

	var base float64
	for _, b := range bars {
		base += b.Volume
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, b := range out {
		sums[b.Timeframe] += b.Volume
		counts[b.Timeframe]++
	}
	for _, tf := range []string{"1m", "5m", "15m"} {
		if sums[tf] != base {
			t.Errorf("%s volume %.0f, want %.0f", tf, sums[tf], base)
		}
	}
	if counts["5m"] != 7 || counts["15m"] != 3 {
		t.Errorf("unexpected bar counts: %v", counts)
	}
}

func TestAggregator_Deterministic(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 58, 0, 0, time.UTC)
	bars := minuteBars(start, 40)
	a := runAggregator(t, bars)
	b := runAggregator(t, bars)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAggregator_CompletedBarShape(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	agg, err := NewAggregator("NQ", "1m", []string{"1m", "5m"})
	if err != nil {
		t.Fatal(err)
	}
	bars := minuteBars(start, 6)
	var done []model.Bar
	for _, b := range bars {
		out, err := agg.Add(b)
		if err != nil {
			t.Fatal(err)
		}
		if out[0] != b {
			t.Fatalf("first emitted bar must be the base bar")
		}
		done = append(done, out[1:]...)
	}
	if len(done) != 1 {
		t.Fatalf("expected one completed 5m bar, got %d", len(done))
	}
	got := done[0]
	if !got.Time.Equal(start) || got.Open != bars[0].Open || got.Close != bars[4].Close {
		t.Errorf("unexpected 5m bar: %+v", got)
	}
	if got.High != 105 || got.Low != 99 {
		t.Errorf("high/low = %.1f/%.1f, want 105/99", got.High, got.Low)
	}
}

func TestAggregator_ConfigErrors(t *testing.T) {
	if _, err := NewAggregator("NQ", "5m", []string{"1m", "5m"}); !errors.Is(err, ErrBaseTimeframe) {
		t.Errorf("base longer than a target: got %v", err)
	}
	if _, err := NewAggregator("NQ", "1m", []string{"5m"}); !errors.Is(err, ErrBaseTimeframe) {
		t.Errorf("base missing from targets: got %v", err)
	}
	if _, err := NewAggregator("NQ", "1m", []string{"1m", "7m"}); !errors.Is(err, model.ErrUnsupportedTimeframe) {
		t.Errorf("unknown label: got %v", err)
	}
}

func TestAggregator_RejectsForeignTimeframe(t *testing.T) {
	agg, err := NewAggregator("NQ", "1m", []string{"1m", "5m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := agg.Add(model.Bar{Timeframe: "5m", Open: 1, High: 1, Low: 1, Close: 1}); err == nil {
		t.Error("expected error for non-base bar")
	}
}
