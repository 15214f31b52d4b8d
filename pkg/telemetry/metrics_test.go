package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CacheHit("op", "memory")
	m.CacheMiss("op")
	m.CacheStore("op", "memory")
	m.LimiterGranted(time.Second)
	m.Upstream("op", "ok", time.Second, 1, 2)
}

func TestCountersRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.CacheHit("comprehensive", "memory")
	m.CacheHit("comprehensive", "memory")
	m.CacheMiss("comprehensive")
	m.Upstream("comprehensive", "ok", 2*time.Second, 10, 5)

	body := scrape(t, m)
	for _, want := range []string{
		`versewright_cache_hits_total{operation="comprehensive",tier="memory"} 2`,
		`versewright_cache_misses_total{operation="comprehensive"} 1`,
		`versewright_upstream_tokens_total{kind="prompt",operation="comprehensive"} 10`,
		`versewright_upstream_requests_total{operation="comprehensive",outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics(nil)
	m.LimiterGranted(3 * time.Second)

	body := scrape(t, m)
	if !strings.Contains(body, "versewright_limiter_accepted_total 1") {
		t.Errorf("expected limiter counter in exposition, got:\n%s", body)
	}
}
