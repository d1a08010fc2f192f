// Package metrics exposes the platform's Prometheus metrics: computation
// lifecycle counters, node registry churn, and proof verification outcomes,
// generalizing the teacher's HTTP/RPC/gradient-aggregation metric set to
// this platform's computation/node/proof domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComputationsStartedTotal counts every computation request that misses
	// the result cache, whether it starts at once or is queued.
	ComputationsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smpc_computations_started_total",
			Help: "Total number of computations started, by operation",
		},
		[]string{"operation"},
	)

	// ComputationsCompletedTotal counts terminal computations by the state
	// they ended in (Completed, Failed, Aborted).
	ComputationsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smpc_computations_completed_total",
			Help: "Total number of computations reaching a terminal state",
		},
		[]string{"operation", "state", "reason"},
	)

	// ComputationDuration tracks end-to-end wall-clock time from Created to
	// a terminal state.
	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smpc_computation_duration_seconds",
			Help:    "Computation duration in seconds, Created to terminal",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "state"},
	)

	// NodesRegistered is a gauge of currently registered nodes.
	NodesRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smpc_nodes_registered",
			Help: "Number of nodes currently in the registry",
		},
	)

	// NodeDisconnectsTotal counts node disconnect events.
	NodeDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smpc_node_disconnects_total",
			Help: "Total number of node disconnect events observed",
		},
	)

	// ProofVerificationsTotal counts ZKP verification outcomes by kind and
	// result.
	ProofVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smpc_proof_verifications_total",
			Help: "Total number of ZKP proof verifications, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// ResultCacheHitsTotal counts result-cache hits/misses.
	ResultCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smpc_result_cache_total",
			Help: "Total number of result-cache lookups, by outcome",
		},
		[]string{"outcome"},
	)
)
