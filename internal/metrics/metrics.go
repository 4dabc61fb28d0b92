package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, recorded by the HTTPMetrics middleware.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mashgiach_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mashgiach_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Inference metrics.
var (
	InferenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mashgiach_inference_requests_total",
		Help: "Model invocations by endpoint role (primary/fallback) and outcome",
	}, []string{"endpoint", "outcome"})

	InferenceRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mashgiach_inference_retries_total",
		Help: "Retry attempts after transient failures, by endpoint role",
	}, []string{"endpoint"})

	InferenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mashgiach_inference_latency_seconds",
		Help:    "End-to-end model invocation latency including retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	FallbackEscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mashgiach_fallback_escalations_total",
		Help: "Analyses escalated to the fallback model after primary quota exhaustion",
	})
)

// Cache metrics.
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mashgiach_verdict_cache_hits_total",
		Help: "Analyses answered from the verdict cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mashgiach_verdict_cache_misses_total",
		Help: "Analyses that had to pay for inference",
	})
)

// Gauges refreshed by the stats worker.
var (
	ScansTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mashgiach_scans_total",
		Help: "Rows in the scan history",
	})

	ScansByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mashgiach_scans_by_status",
		Help: "Scan history rows by kashrut status",
	}, []string{"status"})

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mashgiach_verdict_cache_size",
		Help: "Rows in the verdict cache",
	})
)
