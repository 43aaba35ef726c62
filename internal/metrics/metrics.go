// Package metrics exposes the Prometheus collectors for the fraud-scoring
// hot path: per-endpoint request volume and latency, fraud-score
// distribution, risk-level and decision counters, cache hit/miss per
// layer, rate-limit rejections, and the per-stage duration of model
// prediction, feature extraction, and persistence queries.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dygsom/fraud-api/internal/config"
)

// latencyBuckets are the request-latency histogram boundaries, in
// seconds, per the external-interfaces contract (10ms..10s).
var latencyBuckets = []float64{
	0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.000, 2.500, 5.000, 10.000,
}

// Metrics holds every collector registered for this process and the
// serving path/handler the HTTP router exposes them on.
type Metrics struct {
	path     string
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	fraudScore      prometheus.Histogram
	riskLevelTotal  *prometheus.CounterVec
	decisionTotal   *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	rateLimitHits prometheus.Counter

	modelPredictDuration     prometheus.Histogram
	featureExtractDuration   prometheus.Histogram
	persistenceQueryDuration *prometheus.HistogramVec

	dbPoolInUse prometheus.Gauge
	dbPoolMax   prometheus.Gauge
}

// New builds and registers the collector set under cfg.Namespace. The
// returned Metrics is safe for concurrent use.
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	reg := prometheus.NewRegistry()

	m := &Metrics{
		path:     cfg.Path,
		registry: reg,

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled, by route, method and status.",
		}, []string{"route", "method", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds, by route and method.",
			Buckets:   latencyBuckets,
		}, []string{"route", "method"}),

		fraudScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "scoring",
			Name:      "fraud_score",
			Help:      "Distribution of computed fraud scores in [0, 1].",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 21),
		}),

		riskLevelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scoring",
			Name:      "risk_level_total",
			Help:      "Count of scored transactions by risk level.",
		}, []string{"risk_level"}),

		decisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scoring",
			Name:      "decision_total",
			Help:      "Count of scored transactions by recommended decision.",
		}, []string{"decision"}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by layer (l1, l2).",
		}, []string{"layer"}),

		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by layer (l1, l2).",
		}, []string{"layer"}),

		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by the sliding-window rate limiter.",
		}),

		modelPredictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "model",
			Name:      "predict_duration_seconds",
			Help:      "Time spent producing a fraud score from a feature vector.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),

		featureExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "features",
			Name:      "extract_duration_seconds",
			Help:      "Time spent building the feature vector for one transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),

		persistenceQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "persistence",
			Name:      "query_duration_seconds",
			Help:      "Postgres query duration by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation"}),

		dbPoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "db_pool",
			Name:      "in_use_connections",
			Help:      "Connections currently checked out of the Postgres pool.",
		}),

		dbPoolMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "db_pool",
			Name:      "max_open_connections",
			Help:      "Configured high-water mark for the Postgres pool.",
		}),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.fraudScore,
		m.riskLevelTotal,
		m.decisionTotal,
		m.cacheHits,
		m.cacheMisses,
		m.rateLimitHits,
		m.modelPredictDuration,
		m.featureExtractDuration,
		m.persistenceQueryDuration,
		m.dbPoolInUse,
		m.dbPoolMax,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// PoolStatsSource is satisfied by the Postgres Gateway: its sql.DBStats
// accessor feeds the connection-pool high-water-mark gauges.
type PoolStatsSource interface {
	Stats() sql.DBStats
}

// ObserveDBPoolStats records the pool's current in-use connection count
// and its configured max, per the component design's requirement that
// the pool's high-water mark be surfaced as a metric.
func (m *Metrics) ObserveDBPoolStats(src PoolStatsSource) {
	stats := src.Stats()
	m.dbPoolInUse.Set(float64(stats.InUse))
	m.dbPoolMax.Set(float64(stats.MaxOpenConnections))
}

// Path returns the path the metrics endpoint is served on.
func (m *Metrics) Path() string {
	if m.path == "" {
		return "/metrics"
	}
	return m.path
}

// Handler returns the http.Handler that renders the registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency for every request,
// labeled by the matched chi route pattern so that path parameters
// don't explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveFraudScore records a scored transaction's outcome.
func (m *Metrics) ObserveFraudScore(score float64, riskLevel, decision string) {
	m.fraudScore.Observe(score)
	m.riskLevelTotal.WithLabelValues(riskLevel).Inc()
	m.decisionTotal.WithLabelValues(decision).Inc()
}

// ObserveCacheHit records a cache hit on the given layer ("l1" or "l2").
func (m *Metrics) ObserveCacheHit(layer string) {
	m.cacheHits.WithLabelValues(layer).Inc()
}

// ObserveCacheMiss records a cache miss on the given layer ("l1" or "l2").
func (m *Metrics) ObserveCacheMiss(layer string) {
	m.cacheMisses.WithLabelValues(layer).Inc()
}

// ObserveRateLimitHit records one rejected request.
func (m *Metrics) ObserveRateLimitHit() {
	m.rateLimitHits.Inc()
}

// ObserveModelPredictDuration records the time spent in Model.Predict.
func (m *Metrics) ObserveModelPredictDuration(d time.Duration) {
	m.modelPredictDuration.Observe(d.Seconds())
}

// ObserveFeatureExtractDuration records the time spent building a
// feature vector.
func (m *Metrics) ObserveFeatureExtractDuration(d time.Duration) {
	m.featureExtractDuration.Observe(d.Seconds())
}

// ObservePersistenceQueryDuration records one Postgres query's duration,
// labeled by a short operation name (e.g. "insert_transaction",
// "customer_velocity").
func (m *Metrics) ObservePersistenceQueryDuration(operation string, d time.Duration) {
	m.persistenceQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// statusWriter captures the response status code for the middleware.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// routePattern returns the matched chi route pattern for low-cardinality
// labeling, falling back to the raw path if no route context is set.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
