package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collection, alerting and monitoring instrumentation. The host process decides
// how the default registry is exposed; the engine owns no listener.

var (
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellerpulse_collections_total",
			Help: "Collection cycles by platform and outcome",
		},
		[]string{"platform", "outcome"}, // "success", "connection_error"
	)

	CollectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sellerpulse_collection_duration_seconds",
			Help:    "Duration of a platform collection cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	ListingFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellerpulse_listing_fetch_failures_total",
			Help: "Per-listing performance fetches that failed and were excluded",
		},
		[]string{"platform"},
	)

	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellerpulse_alerts_triggered_total",
			Help: "Alerts emitted by the rule engine",
		},
		[]string{"alert_type", "severity"},
	)

	CompetitorChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellerpulse_competitor_changes_total",
			Help: "Competitor changes detected by snapshot diffs",
		},
		[]string{"type"},
	)

	ActiveMonitoringSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sellerpulse_monitoring_sessions_active",
			Help: "Monitoring sessions currently active",
		},
	)

	PendingScheduledUpdates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sellerpulse_scheduled_updates_pending",
			Help: "Scheduled updates not yet executed or cancelled",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sellerpulse_circuit_breaker_state",
			Help: "Connector circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"platform"},
	)
)
