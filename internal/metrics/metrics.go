package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the sync pipeline
var (
	EventsNormalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "change_events_normalized_total",
			Help: "Total number of raw changes normalized into canonical events",
		},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "change_events_dropped_total",
			Help: "Total number of raw changes dropped as malformed",
		},
	)

	RefreshesFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_refreshes_fired_total",
			Help: "Total number of debounced view refreshes fired",
		},
		[]string{"view"},
	)

	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of inbound webhook deliveries by detected shape",
		},
		[]string{"shape"},
	)

	ReconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Total number of reconciler item outcomes",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Duration of one external event reconciliation",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// reconcile outcome labels
const (
	OutcomeApplied          = "applied"
	OutcomeNoMatch          = "no_match"
	OutcomeQuantityMismatch = "quantity_mismatch"
	OutcomeAlreadyAdvanced  = "already_advanced"
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(EventsNormalized)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(RefreshesFired)
	prometheus.MustRegister(WebhookDeliveries)
	prometheus.MustRegister(ReconcileOutcomes)
	prometheus.MustRegister(ReconcileDuration)
}
