package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_Counters(t *testing.T) {
	m := newTestMetrics(t)

	m.IncResolutions("trigger-name", "success")
	m.IncResolutions("trigger-name", "success")
	m.IncMacros("host", "resolved")
	m.IncMacros("host", "unresolved")
	m.IncCollaboratorRequests("repository", "error")
	m.IncKVCacheHits()
	m.IncKVCacheMisses()
	m.SetKVCacheSize(12)
	m.SetNATSConnectionStatus(true)
	m.IncNATSReconnects()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutionsTotal.WithLabelValues("trigger-name", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.macrosTotal.WithLabelValues("host", "unresolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collaboratorRequestsTotal.WithLabelValues("repository", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.kvCacheHits))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.kvCacheSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.natsConnectionStatus))

	m.SetNATSConnectionStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.natsConnectionStatus))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncResolutions("s", "success")
		m.ObserveResolutionDuration("s", 1)
		m.IncMacros("host", "resolved")
		m.IncCollaboratorRequests("repository", "success")
		m.ObserveCollaboratorDuration("repository", 1)
		m.SetNATSConnectionStatus(true)
		m.IncNATSReconnects()
		m.IncKVCacheHits()
		m.IncKVCacheMisses()
		m.SetKVCacheSize(1)
		m.UpdateSystemMetrics()
		m.IncHTTPRequestsTotal("/", "GET", "200")
		m.ObserveHTTPRequestDuration("/", "GET", 1)
	})
	assert.Nil(t, m.GetRegistry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := newTestMetrics(t)
	m.IncResolutions("graph-name", "error")
	m.UpdateSystemMetrics()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `resolutions_total{scenario="graph-name",status="error"} 1`)
	assert.Contains(t, body, "process_goroutines")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics(t)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/v1/scenarios", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/scenarios", "/api/v1/scenarios", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/scenarios", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequestDuration))
}

func TestMetricsCollector_Jobs(t *testing.T) {
	m := newTestMetrics(t)
	mc, err := NewMetricsCollector(m, time.Hour)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, mc.AddJob("tick", 10*time.Millisecond, func() { runs.Add(1) }))
	require.NoError(t, mc.AddCronJob("nightly", "0 3 * * *", func() {}))
	assert.Error(t, mc.AddCronJob("broken", "not a cron", func() {}))

	names := strings.Join(mc.Jobs(), ",")
	assert.Contains(t, names, "system-metrics")
	assert.Contains(t, names, "tick")
	assert.Contains(t, names, "nightly")

	mc.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, mc.Stop())
	assert.Greater(t, testutil.ToFloat64(m.goroutines), 0.0)
}

func TestMetricsCollector_WithoutMetrics(t *testing.T) {
	mc, err := NewMetricsCollector(nil, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, mc.Jobs())
}
