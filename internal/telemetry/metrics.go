package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics follow the CounterVec/HistogramVec/Gauge idiom of
// Jeeves-Cluster-Organization-jeeves-core's coreengine/observability/
// metrics.go (promauto registration against the default registerer, one
// var block per subsystem).

var (
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasd_mutations_total",
			Help: "Total Scene Store mutations, by operation.",
		},
		[]string{"op"},
	)

	BroadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasd_broadcast_messages_total",
			Help: "Total Broadcast Bus fan-out sends, by message type.",
		},
		[]string{"type"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasd_tool_calls_total",
			Help: "Total Tool Gateway invocations, by tool name and outcome.",
		},
		[]string{"tool", "status"},
	)

	CorrelatorTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasd_correlator_timeouts_total",
			Help: "Total Correlator deadlines elapsed without a result, by kind.",
		},
		[]string{"kind"},
	)

	CorrelatorWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvasd_correlator_wait_seconds",
			Help:    "Time a correlated call waited for a peer result, by kind.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"kind"},
	)

	WSPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canvasd_ws_peers",
			Help: "Current number of attached WebSocket peers.",
		},
	)
)
