// Package metrics exposes agent counters and gauges for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the sentinel.
type Registry struct {
	reg *prometheus.Registry

	Bars          *prometheus.CounterVec
	BiasSnapshots *prometheus.CounterVec
	Zones         prometheus.Counter
	Signals       *prometheus.CounterVec
	OrderEvents   *prometheus.CounterVec
	Blocks        *prometheus.CounterVec
	Halts         *prometheus.CounterVec
	TradeR        prometheus.Histogram
	Equity        prometheus.Gauge
	Drawdown      prometheus.Gauge
	OpenOrders    prometheus.Gauge
}

// NewRegistry creates the metrics on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Bars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_bars_total",
			Help: "Bars processed by timeframe",
		}, []string{"timeframe"}),
		BiasSnapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_bias_snapshots_total",
			Help: "Bias snapshots emitted by direction",
		}, []string{"direction"}),
		Zones: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_structure_zones_total",
			Help: "Structure zones emitted",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_signals_total",
			Help: "Execution signals by outcome",
		}, []string{"outcome"}),
		OrderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_order_events_total",
			Help: "Order lifecycle events by kind",
		}, []string{"kind"}),
		Blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_trade_blocks_total",
			Help: "Bars on which the supervisor refused new trades",
		}, []string{"reason"}),
		Halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_halts_total",
			Help: "Trading halts by reason",
		}, []string{"reason"}),
		TradeR: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_trade_r_multiple",
			Help:    "R-multiple of closed trades",
			Buckets: []float64{-2, -1, -0.5, 0, 0.5, 1, 2, 3, 5},
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_equity",
			Help: "Current account equity",
		}),
		Drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_drawdown_ratio",
			Help: "Current drawdown from peak equity (0.0 to 1.0)",
		}),
		OpenOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_open_orders",
			Help: "Orders not yet in a terminal state",
		}),
	}
	r.reg.MustRegister(r.Bars, r.BiasSnapshots, r.Zones, r.Signals, r.OrderEvents,
		r.Blocks, r.Halts, r.TradeR, r.Equity, r.Drawdown, r.OpenOrders)
	return r
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
