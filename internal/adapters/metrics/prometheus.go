// Package metrics exposes HTTP, aggregation and worker metrics in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kanso"

type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64

	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

func DefaultConfig() Config {
	return Config{
		LatencyBuckets:    []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		RuntimeCollectors: true,
	}
}

type Exporter struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	aggregationLatency *prometheus.HistogramVec
	memoHits           prometheus.Counter
	memoMisses         prometheus.Counter

	streakJobs *prometheus.CounterVec
}

func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	e.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	e.aggregationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent loading and aggregating completions",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"op"},
	)

	e.memoHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "memo_hits_total",
			Help:      "Dashboard reports served from the memo",
		},
	)

	e.memoMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "memo_misses_total",
			Help:      "Dashboard reports computed from scratch",
		},
	)

	e.streakJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "streak_jobs_total",
			Help:      "Streak recomputations by outcome",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		e.httpRequests,
		e.httpLatency,
		e.aggregationLatency,
		e.memoHits,
		e.memoMisses,
		e.streakJobs,
	)

	if cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return e
}

// ObserveAggregation records one stats pass. Only the dashboard goes through
// the memo, so hits and misses are counted for that op alone.
func (e *Exporter) ObserveAggregation(op string, took time.Duration, memoHit bool) {
	e.aggregationLatency.WithLabelValues(op).Observe(took.Seconds())
	if op != "dashboard" {
		return
	}
	if memoHit {
		e.memoHits.Inc()
	} else {
		e.memoMisses.Inc()
	}
}

func (e *Exporter) ObserveStreakJob(outcome string) {
	e.streakJobs.WithLabelValues(outcome).Inc()
}

// Middleware labels requests with the matched route template rather than
// the raw path, so ids do not explode the label space.
func (e *Exporter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		e.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		e.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
