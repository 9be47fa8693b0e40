// Package metrics exposes the simulation's process-health signals —
// tick duration, point/override counts, gateway request totals — as
// Prometheus metrics at GET /metrics. It is a pure observability surface,
// not a historian: BASim persists nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TickDuration records wall-clock time spent running one simulation
	// tick (registry.Expire through PublishSnapshot).
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "basim_tick_duration_seconds",
		Help:    "Wall-clock duration of one simulation tick.",
		Buckets: prometheus.DefBuckets,
	})

	// PointCount tracks the number of points currently registered.
	PointCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "basim_registered_points",
		Help: "Number of points currently registered in the address space.",
	})

	// OverrideCount tracks the number of occupied priority-array slots
	// across the whole registry.
	OverrideCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "basim_active_overrides",
		Help: "Number of occupied priority-array slots across all points.",
	})

	// GatewayRequestsTotal counts inbound protocol operations by gateway
	// and outcome, e.g. {gateway="modbus", op="read_holding", result="ok"}.
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basim_gateway_requests_total",
		Help: "Inbound protocol gateway operations by gateway, operation and result.",
	}, []string{"gateway", "op", "result"})

	// TickCatchupTotal counts how many times the tick driver had to run
	// more than one tick in a single wake to catch simulated time up.
	TickCatchupTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basim_tick_catchup_total",
		Help: "Number of tick-driver wakes that ran more than one tick to catch up.",
	})
)

// Handler returns the Prometheus exposition handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
