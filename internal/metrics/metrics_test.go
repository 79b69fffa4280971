package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ProviderCall("coingecko", "ok")
	m.ProviderCall("coingecko", "ok")
	m.ProviderCall("github", "not_configured")
	m.Fallback("scores")
	m.ReportRendered("analysis", nil)
	m.ReportRendered("comparison", errors.New("disk full"))
	m.ComparisonProjects(2, 1)
	m.ObserveAnalysis(time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("coingecko", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("github", "not_configured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("scores")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRenderedTotal.WithLabelValues("analysis", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRenderedTotal.WithLabelValues("comparison", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ComparisonProjectsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComparisonProjectsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AnalysisDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ProviderCall("coingecko", "ok")
		m.Fallback("summary")
		m.ReportRendered("analysis", nil)
		m.ComparisonProjects(1, 1)
		m.ObserveAnalysis(time.Now(), errors.New("boom"))
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.Fallback("thesis")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `deepdive_fallbacks_total{operation="thesis"} 1`)
}
