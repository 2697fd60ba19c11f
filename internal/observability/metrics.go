// Package observability holds the prometheus collectors shared by the bot service.
package observability

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
	CredentialCooldownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_cooldowns_total",
			Help: "Total number of credentials benched after a quota failure",
		},
		[]string{"provider"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "job_queue_depth",
			Help: "Number of jobs waiting in the in-memory queue",
		},
	)
	JobsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
	)
	JobsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently processing",
		},
	)
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed by the provider that served them",
		},
		[]string{"provider"},
	)
	JobsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs that ended in error",
		},
	)
	JobFailoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_failovers_total",
			Help: "Total number of jobs handed from their primary provider to the fallback",
		},
		[]string{"from", "to"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ProviderRequestsTotal,
			ProviderRequestDuration,
			CredentialCooldownsTotal,
			QueueDepth,
			JobsEnqueuedTotal,
			JobsProcessing,
			JobsCompletedTotal,
			JobsFailedTotal,
			JobFailoversTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, httpStatusClass(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func httpStatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func ObserveProviderCall(provider, outcome string, d time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func CooldownCredential(provider string) {
	CredentialCooldownsTotal.WithLabelValues(provider).Inc()
}

func EnqueueJob(depth int) {
	JobsEnqueuedTotal.Inc()
	QueueDepth.Set(float64(depth))
}

func StartProcessingJob(depth int) {
	QueueDepth.Set(float64(depth))
	JobsProcessing.Inc()
}

func CompleteJob(provider string) {
	JobsProcessing.Dec()
	JobsCompletedTotal.WithLabelValues(provider).Inc()
}

func FailJob() {
	JobsProcessing.Dec()
	JobsFailedTotal.Inc()
}

func Failover(from, to string) {
	JobFailoversTotal.WithLabelValues(from, to).Inc()
}
