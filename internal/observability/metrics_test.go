package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses: got %v, want 2", got)
	}

	m.RecordSnapshotCapture("scheduled", nil)
	m.RecordSnapshotCapture("scheduled", errors.New("boom"))
	if got := testutil.ToFloat64(m.SnapshotCaptures.WithLabelValues("scheduled", "failure")); got != 1 {
		t.Errorf("failed captures: got %v, want 1", got)
	}

	m.RecordUpstreamCall("userFunding", 0.2, errors.New("502"))
	if got := testutil.ToFloat64(m.UpstreamCallErrors.WithLabelValues("userFunding")); got != 1 {
		t.Errorf("upstream errors: got %v, want 1", got)
	}

	m.RecordEngineRun("anchored", 0.5)
	if got := testutil.ToFloat64(m.EngineRuns.WithLabelValues("anchored")); got != 1 {
		t.Errorf("engine runs: got %v, want 1", got)
	}
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordHTTPRequest("/health", "GET", "200", 0.001)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("metric not exposed:\n%s", rec.Body.String())
	}
}
