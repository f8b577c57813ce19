package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	FreezeActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "peering_freeze_active",
		Help: "Whether operations of this instance are currently frozen (1) or running (0)",
	}, []string{"peering"})
	FreezeTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peering_freeze_transitions_total",
		Help: "Total number of freeze gate transitions",
	}, []string{"peering", "state"})
	// Arbitration outcome per processed directory notification
	ArbitrationDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peering_arbitration_decisions_total",
		Help: "Total number of arbitration decisions grouped by reason",
	}, []string{"peering", "reason"})
	PeersObserved = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "peering_peers_observed",
		Help: "Number of peers seen in the last directory snapshot grouped by classification",
	}, []string{"peering", "class"})
	PriorityConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peering_priority_conflicts_total",
		Help: "Total number of snapshots with alive peers of the same priority",
	}, []string{"peering"})
	DeadPeersPruned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peering_dead_peers_pruned_total",
		Help: "Total number of dead peer records removed from the directory",
	}, []string{"peering"})

	// Keep-alive metrics
	KeepaliveWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peering_keepalive_writes_total",
		Help: "Total number of keep-alive writes grouped by result",
	}, []string{"peering", "result"})
	KeepaliveLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "peering_keepalive_last_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful keep-alive write",
	}, []string{"peering"})
)

func init() {
	ctrlmetrics.Registry.MustRegister(
		FreezeActive,
		FreezeTransitions,
		ArbitrationDecisions,
		PeersObserved,
		PriorityConflicts,
		DeadPeersPruned,
		KeepaliveWrites,
		KeepaliveLastSuccess,
	)
}
