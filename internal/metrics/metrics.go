package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posko_runs_total",
		Help: "Total batch runs by kind",
	}, []string{"kind"})
	SyncOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posko_sync_outcomes_total",
		Help: "Property sync outcomes per record pair",
	}, []string{"outcome"})
	ResolutionGapsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posko_resolution_gaps_total",
		Help: "Region names that failed to resolve, by level",
	}, []string{"level"})
	ReconcileMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posko_reconcile_misses_total",
		Help: "Records with no external entity found by name",
	})
	PlatformRequestFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posko_platform_request_failures_total",
		Help: "Failed external platform round trips",
	})
	RunDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posko_run_duration_seconds",
		Help:    "Batch run duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(SyncOutcomesTotal)
	prometheus.MustRegister(ResolutionGapsTotal)
	prometheus.MustRegister(ReconcileMissesTotal)
	prometheus.MustRegister(PlatformRequestFailures)
	prometheus.MustRegister(RunDurationSeconds)
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
