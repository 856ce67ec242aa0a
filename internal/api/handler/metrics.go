package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	plRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishlens_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	plRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishlens_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	plAnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishlens_analyses_total",
		Help: "Completed analyses by verdict, verdict source, and cache hit.",
	}, []string{"verdict", "source", "cached"})

	plOracleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishlens_oracle_failures_total",
		Help: "Oracle calls that fell back to the heuristic model, by reason.",
	}, []string{"reason"})

	plHeuristicScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "phishlens_heuristic_score",
		Help:    "Distribution of heuristic risk scores.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	plAnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishlens_analysis_duration_seconds",
		Help:    "End-to-end analysis time in seconds, including the oracle call.",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"source"})

	plDependencyChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishlens_dependency_checks_total",
		Help: "Dependency health probes by dependency and result.",
	}, []string{"dependency", "result"})

	plAlertDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishlens_alert_deliveries_total",
		Help: "Phishing alert webhook delivery attempts by result.",
	}, []string{"result"})

	plVerdictLogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phishlens_verdict_log_entries",
		Help: "Number of entries in the verdict log, including genesis.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		plRequestsTotal.WithLabelValues(method, path, status).Inc()
		plRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAnalysis is an analysis.MetricsFunc that exports each observation.
func RecordAnalysis(o analysis.Observation) {
	verdict := "safe"
	if o.IsPhishing {
		verdict = "phishing"
	}
	plAnalysesTotal.WithLabelValues(verdict, string(o.Source), strconv.FormatBool(o.Cached)).Inc()
	if o.Cached {
		return
	}
	plHeuristicScore.Observe(float64(o.Heuristic))
	plAnalysisDuration.WithLabelValues(string(o.Source)).Observe(o.Duration.Seconds())
	if o.Source == analysis.SourceFallback {
		plOracleFailuresTotal.WithLabelValues(o.OracleReason).Inc()
	}
}

// RecordDependencyCheck records a dependency health probe result.
func RecordDependencyCheck(name string, success bool) {
	if success {
		plDependencyChecksTotal.WithLabelValues(name, "success").Inc()
	} else {
		plDependencyChecksTotal.WithLabelValues(name, "failure").Inc()
	}
}

// RecordAlertDelivery records one alert webhook delivery attempt.
func RecordAlertDelivery(success bool) {
	if success {
		plAlertDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		plAlertDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}

// SetVerdictLogGauge sets the verdict log size gauge.
func SetVerdictLogGauge(entries int) {
	plVerdictLogEntries.Set(float64(entries))
}
