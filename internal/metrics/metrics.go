// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "settleup"

var (
	// RPCRequests counts handled RPCs by procedure and Connect code.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Handled RPCs by procedure and result code.",
	}, []string{"procedure", "code"})

	// RPCDuration observes RPC latency by procedure.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "RPC latency by procedure.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure"})

	// CacheRefreshes counts balance-cache refreshes by scope (pair, group) and result.
	CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_cache_refreshes_total",
		Help:      "Balance cache refreshes by scope and result.",
	}, []string{"scope", "result"})

	// CacheReads counts read-through lookups by result (hit, miss, error).
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_cache_reads_total",
		Help:      "Balance cache lookups by result.",
	}, []string{"result"})

	// EventHandlerFailures counts subscriber errors swallowed by the event bus.
	EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_handler_failures_total",
		Help:      "Domain event subscriber failures by handler and event.",
	}, []string{"handler", "event"})

	// InvariantViolations counts defects detected at runtime.
	InvariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "Detected invariant violations by invariant.",
	}, []string{"invariant"})

	// SettlementTransitions counts settlement lifecycle changes by target state.
	SettlementTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_transitions_total",
		Help:      "Settlement lifecycle transitions by resulting state.",
	}, []string{"state"})

	// SplitOperations counts split mutations by operation.
	SplitOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "split_operations_total",
		Help:      "Split create/update/remove operations.",
	}, []string{"operation"})
)
