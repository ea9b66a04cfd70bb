// Package metrics registers the service's Prometheus collectors on the
// default registry. They are exposed by the /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoringAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellbeing_scoring_attempts_total",
		Help: "Calls made to the external scoring capability, by provider and outcome",
	}, []string{"provider", "outcome"})

	scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wellbeing_scoring_duration_seconds",
		Help:    "Latency of a single scoring attempt",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"provider"})

	analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellbeing_analyses_total",
		Help: "Analysis runs by outcome (applied, scoring_failed, invalid_output, conflict, store_failed)",
	}, []string{"outcome"})

	statisticsCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellbeing_statistics_cache_total",
		Help: "Statistics cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wellbeing_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route template and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func ScoringAttempt(provider, outcome string, elapsed time.Duration) {
	scoringAttempts.WithLabelValues(provider, outcome).Inc()
	scoringDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func Analysis(outcome string) {
	analyses.WithLabelValues(outcome).Inc()
}

func StatisticsCache(result string) {
	statisticsCache.WithLabelValues(result).Inc()
}

func HTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
