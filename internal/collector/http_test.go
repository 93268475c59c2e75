package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{"timestamp":[1709560860,1709560800,1709560920],
"indicators":{"quote":[{"open":[2101,2100,null],"high":[2102,2101,null],"low":[2100,2099,null],
"close":[2101.5,2101,null],"volume":[5,7,null]}]}}],"error":null}}`

func TestYahooFetcher_ParsesIntradayChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/GC=F", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		fmt.Fprint(w, chartJSON)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "XAUUSD", "1m", time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2, "null quotes are dropped")
	assert.Equal(t, int64(1709560800), bars[0].Time.Unix(), "sorted oldest first")
	assert.Equal(t, "XAUUSD", bars[0].Symbol)
	assert.Equal(t, 7.0, bars[0].Volume)

	bars, err = f.FetchBars(context.Background(), "XAUUSD", "1m", time.Unix(1709560800, 0))
	require.NoError(t, err)
	require.Len(t, bars, 1)

	_, err = f.FetchBars(context.Background(), "XAUUSD", "4h", time.Time{})
	assert.Error(t, err)
}

func TestRESTFetcher_SendsKeyAndSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "NQ", r.URL.Query().Get("symbol"))
		if r.URL.Query().Get("since") == "" {
			http.Error(w, "since required", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `[{"timestamp":1709560860,"open":1,"high":2,"low":0.5,"close":1.5,"volume":3},
{"timestamp":1709560800,"open":1,"high":2,"low":0.5,"close":1,"volume":1}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchBars(context.Background(), "NQ", "1m", time.Unix(1709560740, 0))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))

	_, err = f.FetchBars(context.Background(), "NQ", "1m", time.Time{})
	assert.ErrorContains(t, err, "status 400")
}
