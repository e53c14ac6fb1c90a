package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Pipeline metrics
	OpportunitiesCreated *prometheus.CounterVec
	StageTransitions     *prometheus.CounterVec
	DealsClosed          *prometheus.CounterVec
	LeadsConverted       prometheus.Counter
	ExportsCreated       prometheus.Counter
	ProbabilityRefreshes *prometheus.CounterVec

	// Database metrics
	DBConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates a new Metrics instance registered with reg. A nil reg uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Pipeline metrics
		OpportunitiesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunities_created_total",
				Help: "Total number of opportunities created",
			},
			[]string{"pipeline"},
		),
		StageTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunity_stage_transitions_total",
				Help: "Total number of opportunity stage changes",
			},
			[]string{"pipeline", "from", "to"},
		),
		DealsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunities_closed_total",
				Help: "Total number of opportunities closed",
			},
			[]string{"pipeline", "outcome"}, // won, lost
		),
		LeadsConverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_converted_total",
			Help: "Total number of leads converted to customers",
		}),
		ExportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "exports_created_total",
			Help: "Total number of exports created",
		}),
		ProbabilityRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probability_refresh_runs_total",
				Help: "Total number of scheduled probability refresh runs",
			},
			[]string{"status"}, // success, failed
		),

		// Database metrics
		DBConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_connections",
				Help: "Number of database connections by state",
			},
			[]string{"state"}, // in_use, idle
		),

		// Cache metrics
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // Use route pattern, not actual path (e.g., /api/v1/opportunities/:id)

			if req.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(req.Method, path).Observe(float64(req.ContentLength))
			}

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// OpportunityCreated increments the created counter of a pipeline.
func (m *Metrics) OpportunityCreated(p pipeline.Pipeline) {
	m.OpportunitiesCreated.WithLabelValues(string(p)).Inc()
}

// StageChanged counts a stage move.
func (m *Metrics) StageChanged(p pipeline.Pipeline, from, to pipeline.Stage) {
	m.StageTransitions.WithLabelValues(string(p), string(from), string(to)).Inc()
}

// DealClosed counts a won or lost deal.
func (m *Metrics) DealClosed(p pipeline.Pipeline, outcome pipeline.Status) {
	m.DealsClosed.WithLabelValues(string(p), string(outcome)).Inc()
}

// RecordLeadConverted increments leads converted counter
func (m *Metrics) RecordLeadConverted() {
	m.LeadsConverted.Inc()
}

// RecordExportCreated increments exports created counter
func (m *Metrics) RecordExportCreated() {
	m.ExportsCreated.Inc()
}

// RecordProbabilityRefresh counts one scheduled refresh run.
func (m *Metrics) RecordProbabilityRefresh(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.ProbabilityRefreshes.WithLabelValues(status).Inc()
}

// UpdateDBConnections copies pool statistics into the connections gauge.
func (m *Metrics) UpdateDBConnections(stats sql.DBStats) {
	m.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}

// RecordCacheHit increments cache hits counter
func (m *Metrics) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments cache misses counter
func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}
