package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Go runtime and process collectors are always present.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	m.RequestsTotal.WithLabelValues("GET", "200", "/api/lichess").Inc()
	m.UpstreamResponses.WithLabelValues("swiss_results", "200").Inc()
	m.UpstreamErrors.WithLabelValues("team").Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"lichess_gateway_http_requests_total":      false,
		"lichess_gateway_upstream_responses_total": false,
		"lichess_gateway_upstream_errors_total":    false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestObserveUpstream(t *testing.T) {
	m := New()

	m.ObserveUpstream("team", http.StatusOK, 20*time.Millisecond)
	m.ObserveUpstream("team", http.StatusOK, 30*time.Millisecond)
	m.ObserveUpstream("team", http.StatusNotFound, 10*time.Millisecond)
	m.UpstreamFailed("swiss", time.Second)

	if got := testutil.ToFloat64(m.UpstreamResponses.WithLabelValues("team", "200")); got != 2 {
		t.Errorf("team 200 responses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.UpstreamResponses.WithLabelValues("team", "404")); got != 1 {
		t.Errorf("team 404 responses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("swiss")); got != 1 {
		t.Errorf("swiss errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.UpstreamDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestObserveUpstream_NilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("team", http.StatusOK, time.Millisecond)
	m.UpstreamFailed("team", time.Millisecond)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveUpstream("tv_channels", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	want := `lichess_gateway_upstream_responses_total{route="tv_channels",status_code="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("exposition missing %q", want)
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := NormalizeMethod(tt.method); got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/lichess/swiss/abc/results", "/api/lichess"},
		{"/api/lichess", "/api/lichess"},
		{"/api/lichessx", "other"},
		{"/healthz", "/healthz"},
		{"/gateway/status", "/gateway/status"},
		{"/metrics", "/metrics"},
		{"/api/user/magnus", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
