package metrics

import (
	"errors"
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

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Query("station", time.Second)
		m.Completion("ok")
		m.CompletionRetry()
		m.ProviderRequest("aqicn", time.Second, nil)
		m.BreakerState("aqicn", 2)
		m.DocumentIngested(3)
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Query("station", 10*time.Millisecond)
	m.Query("station", 10*time.Millisecond)
	m.ProviderRequest("aqicn", time.Millisecond, errors.New("boom"))
	m.DocumentIngested(7)

	assert.InDelta(t, 2, testutil.ToFloat64(m.queriesTotal.WithLabelValues("station")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.providerRequests.WithLabelValues("aqicn", "error")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.chunksIndexed), 0)
}

func TestMetrics_HandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.WrapHandler("test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `airrag_http_requests_total{route="test",status="418"} 1`))
}
