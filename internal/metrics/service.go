package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategium_matches_reported_total",
			Help: "The total number of match results reported.",
		}),
		StandingsRecalculated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategium_standings_recalculations_total",
			Help: "The total number of standings recalculations.",
		}),
		RecalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategium_standings_recalculation_duration_seconds",
			Help:    "The duration of a standings recalculation.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategium_store_errors_total",
			Help: "The total number of failed league store operations.",
		}, []string{"operation"}),
		ChangeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategium_change_events_total",
			Help: "The total number of pushed collection changes applied by coordinators.",
		}, []string{"collection"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategium_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategium_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategium_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MatchesReported,
		s.StandingsRecalculated,
		s.RecalculationDuration,
		s.StoreErrors,
		s.ChangeEvents,
		s.NotificationsSent,
		s.NotificationsFailed,
		s.StartupTimeSeconds,
	)

	return s
}

// WithLifetime mirrors the match and notification counters into store.
func (s *Service) WithLifetime(store MetricsStore) *Service {
	s.lifetime = store
	return s
}

func (s *Service) persist(key string) {
	if s.lifetime != nil {
		s.lifetime.Increment(key)
	}
}

func (s *Service) IncMatchesReported() {
	s.MatchesReported.Inc()
	s.persist(KeyMatchesReported)
}

func (s *Service) IncStandingsRecalculated() {
	s.StandingsRecalculated.Inc()
}

func (s *Service) ObserveRecalculationDuration(duration float64) {
	s.RecalculationDuration.Observe(duration)
}

func (s *Service) IncStoreErrors(operation string) {
	s.StoreErrors.WithLabelValues(operation).Inc()
}

func (s *Service) IncChangeEvents(collection string) {
	s.ChangeEvents.WithLabelValues(collection).Inc()
}

func (s *Service) IncNotificationsSent() {
	s.NotificationsSent.Inc()
	s.persist(KeyNotificationsSent)
}

func (s *Service) IncNotificationsFailed() {
	s.NotificationsFailed.Inc()
	s.persist(KeyNotificationsFailed)
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
