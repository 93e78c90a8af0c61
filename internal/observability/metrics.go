package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limit denials on /api. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Rows kept after normalization on the last load.
	DatasetRowsLoaded prometheus.Gauge

	// Rows dropped for unparseable timestamps on the last load. Watch for: upstream format changes.
	DatasetRowsDropped prometheus.Gauge

	// Time spent reading and normalizing the source file.
	DatasetLoadDuration prometheus.Histogram

	// Filtered views by outcome (ok, empty, error).
	ViewRequestsTotal *prometheus.CounterVec

	// Rows per filtered view. Watch for: very large views slowing the page.
	ViewRows prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	DatasetRowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datasetRowsLoaded",
			Help: "Rows in the normalized dataset",
		},
	)
	DatasetRowsDropped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datasetRowsDropped",
			Help: "Rows dropped at load because last_updated did not parse",
		},
	)
	DatasetLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datasetLoadDurationSeconds",
			Help:    "Time to read and normalize the source file",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	ViewRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewRequestsTotal",
			Help: "Filtered views produced, by outcome",
		},
		[]string{"outcome"},
	)
	ViewRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viewRows",
			Help:    "Number of rows in each filtered view",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RateLimitDeniedTotal,
		DatasetRowsLoaded, DatasetRowsDropped, DatasetLoadDuration,
		ViewRequestsTotal, ViewRows,
	)
}

// RecordView records the outcome of one filtered view.
func RecordView(rows int, err error) {
	switch {
	case err != nil:
		ViewRequestsTotal.WithLabelValues("error").Inc()
		return
	case rows == 0:
		ViewRequestsTotal.WithLabelValues("empty").Inc()
	default:
		ViewRequestsTotal.WithLabelValues("ok").Inc()
	}
	ViewRows.Observe(float64(rows))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
