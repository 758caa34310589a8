package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	MatchesReported       prometheus.Counter
	StandingsRecalculated prometheus.Counter
	RecalculationDuration prometheus.Histogram
	StoreErrors           *prometheus.CounterVec
	ChangeEvents          *prometheus.CounterVec
	NotificationsSent     prometheus.Counter
	NotificationsFailed   prometheus.Counter
	StartupTimeSeconds    prometheus.Gauge
	lifetime              MetricsStore
}

// Keys of the lifetime counters.
const (
	KeyMatchesReported     = "matches_reported"
	KeyNotificationsSent   = "notifications_sent"
	KeyNotificationsFailed = "notifications_failed"
)
