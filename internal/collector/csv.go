package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"KillZoneSentinel/internal/model"
)

// CSVFetcher serves bars from a file with header
// timestamp,open,high,low,close,volume[,timeframe].
type CSVFetcher struct {
	Path string
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchBars(_ context.Context, symbol, timeframe string, since time.Time) ([]model.Bar, error) {
	bars, err := LoadCSV(f.Path, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	return after(bars, since), nil
}

// LoadCSV reads a bar file. Rows without a timeframe column get defaultTimeframe.
// Timestamps may be RFC3339, "2006-01-02 15:04:05" (UTC) or unix seconds.
func LoadCSV(path, symbol, defaultTimeframe string) ([]model.Bar, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer fh.Close()
	return ReadCSV(fh, symbol, defaultTimeframe)
}

// ReadCSV parses bars from r and returns them sorted by time.
func ReadCSV(r io.Reader, symbol, defaultTimeframe string) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csv missing column %q", col)
		}
	}

	var bars []model.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		b, err := parseRow(rec, idx, symbol, defaultTimeframe)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseRow(rec []string, idx map[string]int, symbol, tf string) (model.Bar, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return model.Bar{}, err
	}
	b := model.Bar{Symbol: symbol, Timeframe: tf, Time: ts}
	if v := field("timeframe"); v != "" {
		b.Timeframe = v
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}, {"volume", &b.Volume}} {
		raw := field(p.name)
		if raw == "" && p.name == "volume" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("parse %s: %w", p.name, err)
		}
		*p.dst = v
	}
	return b, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
