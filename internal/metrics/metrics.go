// Package metrics defines Prometheus metrics for amazon-connector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "amzc"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
)

// SP-API call metrics.
var (
	APICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "spapi_calls_total",
		Help:      "Total SP-API calls by endpoint class and HTTP status.",
	}, []string{"endpoint", "status"})

	RateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting on the rate limiter before a call.",
		Buckets:   []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"endpoint"})

	TokenRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total successful access token refreshes.",
	})
)

// Circuit breaker metrics.
var (
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
	}, []string{"endpoint"})

	BreakerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_rejections_total",
		Help:      "Total calls rejected by an open circuit breaker.",
	}, []string{"endpoint"})
)

// Retry metrics.
var (
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Total retry attempts by error category.",
	}, []string{"category"})

	RetriesExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_exhausted_total",
		Help:      "Total operations that exhausted their retry budget.",
	}, []string{"category"})
)

// Fetch pipeline metrics.
var (
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of full fetch runs per marketplace.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"marketplace"})

	OrdersFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_fetched_total",
		Help:      "Total orders fetched per marketplace.",
	}, []string{"marketplace"})

	ItemsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_fetched_total",
		Help:      "Total order items fetched per marketplace.",
	}, []string{"marketplace"})

	FailedOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failed_orders_total",
		Help:      "Total orders whose item fetch was exhausted, by category.",
	}, []string{"category"})

	BatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "batch_size",
		Help:      "Current adaptive batch size for item fetching.",
	})
)

// Sink metrics.
var (
	SinkRowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_rows_written_total",
		Help:      "Total rows written per sink.",
	}, []string{"sink"})

	SinkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_errors_total",
		Help:      "Total sink write failures per sink.",
	}, []string{"sink"})
)

// Health gauges.
var (
	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 when the process is live.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 when dependencies are reachable and the service is ready.",
	})
)
