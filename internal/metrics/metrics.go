// Package metrics exposes Prometheus collectors for the company crawler.
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

// Page outcomes.
const (
	PageOK     = "ok"
	PageFailed = "failed"
)

// Record stages.
const (
	StageExtracted = "extracted"
	StageSkipped   = "skipped"
	StageStored    = "stored"
)

var (
	pagesTotal                 *prometheus.CounterVec
	recordsTotal               *prometheus.CounterVec
	runsTotal                  *prometheus.CounterVec
	storageFailuresTotal       prometheus.Counter
	runDurationSeconds         prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_crawler_pages_total",
				Help: "Total number of listing pages processed, labeled by outcome.",
			},
			[]string{"status"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_crawler_records_total",
				Help: "Total number of company rows, labeled by pipeline stage.",
			},
			[]string{"stage"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_crawler_runs_total",
				Help: "Total number of crawl runs, labeled by terminal state.",
			},
			[]string{"state"},
		)

		storageFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "company_crawler_storage_failures_total",
				Help: "Total number of failed bulk inserts.",
			},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "company_crawler_run_duration_seconds",
				Help:    "Histogram of crawl run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for the given outcome.
func ObservePage(status string) {
	pagesTotal.WithLabelValues(status).Inc()
}

// ObserveRecords adds n rows to the given stage.
func ObserveRecords(stage string, n int) {
	if n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(stage).Add(float64(n))
}

// ObserveRun increments the run counter and records its duration.
func ObserveRun(state string, duration time.Duration) {
	runsTotal.WithLabelValues(state).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveStorageFailure increments the storage failure counter.
func ObserveStorageFailure() {
	storageFailuresTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
