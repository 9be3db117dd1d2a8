// Package metrics exposes Prometheus collectors for the tracker service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	trackerJobsTotal            *prometheus.CounterVec
	trackerPagesTotal           *prometheus.CounterVec
	trackerFetchDurationSeconds *prometheus.HistogramVec
	trackerBooksDiscoveredTotal prometheus.Counter
	trackerReleaseDatesTotal    prometheus.Counter
	trackerJobInProgress        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		trackerJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_jobs_total",
				Help: "Total number of scrape jobs processed, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		trackerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_pages_total",
				Help: "Total number of product pages fetched, labeled by page type and result.",
			},
			[]string{"page", "result"},
		)

		trackerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_fetch_duration_seconds",
				Help:    "Histogram of rendered page fetch latencies, labeled by page type.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"page"},
		)

		trackerBooksDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tracker_books_discovered_total",
				Help: "Total number of previously unknown books committed.",
			},
		)

		trackerReleaseDatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tracker_release_dates_total",
				Help: "Total number of missing release dates filled in.",
			},
		)

		trackerJobInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_job_in_progress",
				Help: "Whether a scrape job is currently being processed (0 or 1).",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given kind and outcome.
func ObserveJob(kind, outcome string) {
	trackerJobsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveFetch records one page fetch attempt and, on success, its latency.
func ObserveFetch(page string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	trackerPagesTotal.WithLabelValues(page, result).Inc()
	if err == nil {
		trackerFetchDurationSeconds.WithLabelValues(page).Observe(duration.Seconds())
	}
}

// ObserveBookDiscovered increments the discovered books counter.
func ObserveBookDiscovered() {
	trackerBooksDiscoveredTotal.Inc()
}

// ObserveReleaseDate increments the committed release dates counter.
func ObserveReleaseDate() {
	trackerReleaseDatesTotal.Inc()
}

// SetJobInProgress flips the in-progress gauge.
func SetJobInProgress(active bool) {
	if active {
		trackerJobInProgress.Set(1)
		return
	}
	trackerJobInProgress.Set(0)
}
