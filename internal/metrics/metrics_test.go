package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"xritd/internal/metrics"
)

func TestCollectorsRecord(t *testing.T) {
	c := metrics.New()
	c.SegmentIngested("goes", "visible")
	c.SegmentIngested("goes", "visible")
	c.ProductWritten("goes", "infrared")
	c.SetGroupsTracked("goes", 4)
	c.ObserveTick("goes", 5*time.Millisecond)

	if got := testutil.ToFloat64(c.SegmentsIngested.WithLabelValues("goes", "visible")); got != 2 {
		t.Fatalf("segments ingested = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ProductsWritten.WithLabelValues("goes", "infrared")); got != 1 {
		t.Fatalf("products written = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.GroupsTracked.WithLabelValues("goes")); got != 4 {
		t.Fatalf("groups tracked = %v, want 4", got)
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var c *metrics.Collectors
	c.SegmentIngested("a", "b")
	c.PoisonGroup("a")
	c.ObserveTick("a", time.Second)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil collectors, got %d", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := metrics.New()
	c.FileErased("goes")
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `xritd_files_erased_total{folder="goes"} 1`) {
		t.Fatalf("missing erased counter in output:\n%s", rec.Body.String())
	}
}
