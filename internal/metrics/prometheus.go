// Package metrics provides Prometheus metrics for platoon processes.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	requestsInFlight     prometheus.Gauge
	peerRequestsTotal    *prometheus.CounterVec
	peerRequestDuration  *prometheus.HistogramVec
	notificationsFailed  *prometheus.CounterVec
	notificationsDropped *prometheus.CounterVec
	electionsTotal       *prometheus.CounterVec
	repairsTotal         *prometheus.CounterVec
	probeFailures        *prometheus.CounterVec
	gapsClosed           prometheus.Counter
	isLeader             prometheus.Gauge
	speed                prometheus.Gauge
	targetSpeed          prometheus.Gauge
	gap                  prometheus.Gauge
}

// NewRegistry returns a registry with the Go runtime and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates and registers Prometheus metrics on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "platoon_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "path"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "platoon_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		peerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_peer_requests_total",
				Help: "Total number of outbound peer requests",
			},
			[]string{"operation", "status"},
		),
		peerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "platoon_peer_request_duration_seconds",
				Help:    "Outbound peer request duration in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"operation"},
		),
		notificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_notifications_failed_total",
				Help: "Background notifications whose peer could not be reached",
			},
			[]string{"operation"},
		),
		notificationsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_notifications_dropped_total",
				Help: "Background notifications rejected by a full worker queue",
			},
			[]string{"operation"},
		),
		electionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_elections_total",
				Help: "Election messages handled, by stage",
			},
			[]string{"stage"},
		),
		repairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_ring_repairs_total",
				Help: "Ring repair steps, by stage",
			},
			[]string{"stage"},
		),
		probeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platoon_probe_failures_total",
				Help: "Failed liveness probes, by target",
			},
			[]string{"target"},
		),
		gapsClosed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "platoon_gaps_closed_total",
				Help: "Number of following-distance gaps closed by this motion node",
			},
		),
		isLeader: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "platoon_is_leader",
				Help: "1 while this node leads the platoon",
			},
		),
		speed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "platoon_speed_kmh",
				Help: "Current speed of the truck",
			},
		),
		targetSpeed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "platoon_target_speed_kmh",
				Help: "Target speed of the truck",
			},
		),
		gap: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "platoon_gap_km",
				Help: "Distance still to recover while closing a gap",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncRequestsInFlight increments the in-flight requests counter.
func (m *Metrics) IncRequestsInFlight() {
	m.requestsInFlight.Inc()
}

// DecRequestsInFlight decrements the in-flight requests counter.
func (m *Metrics) DecRequestsInFlight() {
	m.requestsInFlight.Dec()
}

// RecordPeerRequest records one outbound call to another platoon process.
func (m *Metrics) RecordPeerRequest(operation, status string, duration time.Duration) {
	m.peerRequestsTotal.WithLabelValues(operation, status).Inc()
	m.peerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// NotificationFailed implements workerpool.Observer.
func (m *Metrics) NotificationFailed(operation string) {
	m.notificationsFailed.WithLabelValues(operation).Inc()
}

// NotificationDropped implements workerpool.Observer.
func (m *Metrics) NotificationDropped(operation string) {
	m.notificationsDropped.WithLabelValues(operation).Inc()
}

// RecordElection counts an election step: started, forwarded, concluded or announced.
func (m *Metrics) RecordElection(stage string) {
	m.electionsTotal.WithLabelValues(stage).Inc()
}

// RecordRepair counts a ring repair step: requested, forwarded or closed.
func (m *Metrics) RecordRepair(stage string) {
	m.repairsTotal.WithLabelValues(stage).Inc()
}

// RecordProbeFailure counts a failed probe of front, cruise or platoon.
func (m *Metrics) RecordProbeFailure(target string) {
	m.probeFailures.WithLabelValues(target).Inc()
}

// RecordGapClosed counts a completed gap-closing manoeuvre.
func (m *Metrics) RecordGapClosed() {
	m.gapsClosed.Inc()
}

// SetLeader sets the leader gauge.
func (m *Metrics) SetLeader(leader bool) {
	if leader {
		m.isLeader.Set(1)
	} else {
		m.isLeader.Set(0)
	}
}

// SetMotion publishes the speed state machine.
func (m *Metrics) SetMotion(speed, targetSpeed int, gap float64) {
	m.speed.Set(float64(speed))
	m.targetSpeed.Set(float64(targetSpeed))
	m.gap.Set(gap)
}

// MetricsServer provides a separate HTTP server for Prometheus metrics.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(port int, path string, m *Metrics, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the metrics server. It blocks until the server stops.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("starting metrics server", zap.String("addr", ms.server.Addr))
	if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// MetricsMiddleware creates middleware that records HTTP metrics.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.IncRequestsInFlight()
			defer m.DecRequestsInFlight()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			m.RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
