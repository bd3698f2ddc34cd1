// file: internal/metrics/metrics.go

package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides centralized metrics collection for the resolver.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Resolution metrics
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	macrosTotal        *prometheus.CounterVec

	// Collaborator metrics
	collaboratorRequestsTotal *prometheus.CounterVec
	collaboratorDuration      *prometheus.HistogramVec

	// NATS connection metrics
	natsConnectionStatus prometheus.Gauge
	natsReconnects       prometheus.Counter

	// KV metrics
	kvCacheHits   prometheus.Counter
	kvCacheMisses prometheus.Counter
	kvCacheSize   prometheus.Gauge

	// System metrics
	goroutines  prometheus.Gauge
	memoryBytes prometheus.Gauge

	// HTTP inbound metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new metrics instance with all collectors registered
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,

		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolutions_total",
				Help: "Total number of resolution batches by scenario and status",
			},
			[]string{"scenario", "status"},
		),
		resolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolution_duration_seconds",
				Help:    "Duration of resolution batches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario"},
		),
		macrosTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macros_total",
				Help: "Total number of distinct macros resolved by family and outcome",
			},
			[]string{"family", "outcome"},
		),

		collaboratorRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collaborator_requests_total",
				Help: "Total number of collaborator requests by collaborator and status",
			},
			[]string{"collaborator", "status"},
		),
		collaboratorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collaborator_request_duration_seconds",
				Help:    "Duration of collaborator requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collaborator"},
		),

		natsConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nats_connection_status",
				Help: "NATS connection status (1 = connected, 0 = disconnected)",
			},
		),
		natsReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nats_reconnects_total",
				Help: "Total number of NATS reconnections",
			},
		),

		kvCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kv_cache_hits_total",
				Help: "Total number of KV cache hits",
			},
		),
		kvCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kv_cache_misses_total",
				Help: "Total number of KV cache misses",
			},
		),
		kvCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kv_cache_size",
				Help: "Current number of entries in KV cache",
			},
		),

		goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "process_goroutines",
				Help: "Number of goroutines",
			},
		),
		memoryBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "process_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_inbound_requests_total",
				Help: "Total number of inbound HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of inbound HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}

	collectors := []prometheus.Collector{
		m.resolutionsTotal,
		m.resolutionDuration,
		m.macrosTotal,
		m.collaboratorRequestsTotal,
		m.collaboratorDuration,
		m.natsConnectionStatus,
		m.natsReconnects,
		m.kvCacheHits,
		m.kvCacheMisses,
		m.kvCacheSize,
		m.goroutines,
		m.memoryBytes,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetRegistry returns the Prometheus registry (needed for HTTP handler)
func (m *Metrics) GetRegistry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Resolution metrics
func (m *Metrics) IncResolutions(scenario, status string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(scenario, status).Inc()
}

func (m *Metrics) ObserveResolutionDuration(scenario string, seconds float64) {
	if m == nil {
		return
	}
	m.resolutionDuration.WithLabelValues(scenario).Observe(seconds)
}

func (m *Metrics) IncMacros(family, outcome string) {
	if m == nil {
		return
	}
	m.macrosTotal.WithLabelValues(family, outcome).Inc()
}

// Collaborator metrics
func (m *Metrics) IncCollaboratorRequests(collaborator, status string) {
	if m == nil {
		return
	}
	m.collaboratorRequestsTotal.WithLabelValues(collaborator, status).Inc()
}

func (m *Metrics) ObserveCollaboratorDuration(collaborator string, seconds float64) {
	if m == nil {
		return
	}
	m.collaboratorDuration.WithLabelValues(collaborator).Observe(seconds)
}

// NATS connection metrics
func (m *Metrics) SetNATSConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.natsConnectionStatus.Set(1)
	} else {
		m.natsConnectionStatus.Set(0)
	}
}

func (m *Metrics) IncNATSReconnects() {
	if m == nil {
		return
	}
	m.natsReconnects.Inc()
}

// KV metrics
func (m *Metrics) IncKVCacheHits() {
	if m == nil {
		return
	}
	m.kvCacheHits.Inc()
}

func (m *Metrics) IncKVCacheMisses() {
	if m == nil {
		return
	}
	m.kvCacheMisses.Inc()
}

func (m *Metrics) SetKVCacheSize(size float64) {
	if m == nil {
		return
	}
	m.kvCacheSize.Set(size)
}

// UpdateSystemMetrics samples goroutines and heap usage
func (m *Metrics) UpdateSystemMetrics() {
	if m == nil {
		return
	}
	m.goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryBytes.Set(float64(memStats.Alloc))
}

// HTTP inbound metrics
func (m *Metrics) IncHTTPRequestsTotal(path, method, status string) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(path, method, status).Inc()
}

func (m *Metrics) ObserveHTTPRequestDuration(path, method string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(path, method).Observe(seconds)
}
