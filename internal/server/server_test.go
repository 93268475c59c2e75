package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/metrics"
	"KillZoneSentinel/internal/model"
)

type stubSource struct {
	orders []model.OrderPlan
	bias   *model.BiasSnapshot
}

func (s *stubSource) Stats() agent.Stats {
	return agent.Stats{Symbol: "XAUUSD", ClosedTrades: 1, TotalPnL: -2000, FinalEquity: 98000}
}
func (s *stubSource) Status() agent.Status { return agent.Status{Symbol: "XAUUSD", Broker: "paper"} }
func (s *stubSource) Orders() []model.OrderPlan { return s.orders }
func (s *stubSource) OpenOrders() []model.OrderPlan {
	var out []model.OrderPlan
	for _, o := range s.orders {
		if o.Open() {
			out = append(out, o)
		}
	}
	return out
}
func (s *stubSource) LatestBias() (model.BiasSnapshot, bool) {
	if s.bias == nil {
		return model.BiasSnapshot{}, false
	}
	return *s.bias, true
}
func (s *stubSource) LatestStructure() (model.StructureZone, bool) { return model.StructureZone{}, false }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	src := &stubSource{orders: []model.OrderPlan{
		{ID: "a", State: model.StateExit},
		{ID: "b", State: model.StateWaiting},
	}}
	reg := metrics.NewRegistry()
	reg.Equity.Set(98000)
	h := New("127.0.0.1:0", src, reg.Handler()).Handler()

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(t, h, "/summary")
	var stats agent.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 98000.0, stats.FinalEquity)
	assert.Contains(t, rec.Body.String(), `"closed_trades":1`)

	rec = get(t, h, "/orders?open=true")
	var open []model.OrderPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &open))
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0].ID)

	assert.Equal(t, http.StatusOK, get(t, h, "/orders/a").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/orders/zzz").Code)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/bias").Code)
	src.bias = &model.BiasSnapshot{ID: 3, Direction: model.Long, Time: time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)}
	assert.Contains(t, get(t, h, "/bias").Body.String(), `"Direction":"long"`)

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sentinel_equity 98000"))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}
