// Package metrics exposes Prometheus collectors for the ETL service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	etlRunsTotal              *prometheus.CounterVec
	etlRecordsProcessedTotal  *prometheus.CounterVec
	etlRecordsFailedTotal     *prometheus.CounterVec
	etlRunDurationSeconds     *prometheus.HistogramVec
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. It is safe to call multiple
// times; observation helpers are no-ops before the first call.
func Init() {
	once.Do(func() {
		etlRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_runs_total",
				Help: "Total number of ingestion runs, labeled by source and status.",
			},
			[]string{"source", "status"},
		)

		etlRecordsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_records_processed_total",
				Help: "Total number of records normalized and stored, labeled by source.",
			},
			[]string{"source"},
		)

		etlRecordsFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_records_failed_total",
				Help: "Total number of records that failed normalization, labeled by source.",
			},
			[]string{"source"},
		)

		etlRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_run_duration_seconds",
				Help:    "Histogram of ingestion run durations, labeled by source.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveRun records one finished ingestion run.
func ObserveRun(source, status string, durationSeconds float64) {
	if etlRunsTotal == nil {
		return
	}
	etlRunsTotal.WithLabelValues(source, status).Inc()
	etlRunDurationSeconds.WithLabelValues(source).Observe(durationSeconds)
}

// AddRecords accumulates per-run record counters.
func AddRecords(source string, processed, failed int64) {
	if etlRecordsProcessedTotal == nil {
		return
	}
	etlRecordsProcessedTotal.WithLabelValues(source).Add(float64(processed))
	etlRecordsFailedTotal.WithLabelValues(source).Add(float64(failed))
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
