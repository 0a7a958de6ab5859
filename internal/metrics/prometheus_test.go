package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	// two nodes in one test process must not collide
	m1 := NewMetrics(prometheus.NewRegistry())
	m2 := NewMetrics(prometheus.NewRegistry())

	m1.RecordElection("started")
	m1.RecordElection("started")
	m2.RecordElection("started")

	assert.Equal(t, 2.0, testutil.ToFloat64(m1.electionsTotal.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m2.electionsTotal.WithLabelValues("started")))
}

func TestMetrics_RingCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordRepair("forwarded")
	m.RecordProbeFailure("front")
	m.NotificationFailed("update_front")
	m.NotificationDropped("set_list")
	m.RecordPeerRequest("health_check", "error", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairsTotal.WithLabelValues("forwarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeFailures.WithLabelValues("front")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsFailed.WithLabelValues("update_front")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsDropped.WithLabelValues("set_list")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.peerRequestsTotal.WithLabelValues("health_check", "error")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := NewMetrics(nil)

	m.SetLeader(true)
	m.SetMotion(42, 50, 0.06)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.isLeader))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.speed))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.targetSpeed))
	assert.InDelta(t, 0.06, testutil.ToFloat64(m.gap), 1e-9)

	m.SetLeader(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.isLeader))
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics(nil)
	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPut, "/v1/register/cruise", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("PUT", "/v1/register/cruise", "409")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(NewRegistry())
	m.RecordGapClosed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "platoon_gaps_closed_total 1"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
