package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/keithlinneman/padfetch/internal/version"
)

func gather(t *testing.T, m *FetchMetrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

// counterValue finds a counter with the given label pairs, or 0.
func counterValue(f *dto.MetricFamily, labels map[string]string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && lp.GetValue() != want {
				match = false
				break
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

// New

func TestNew_ReturnsNonNil(t *testing.T) {
	if New() == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNew_RegistryScrapes(t *testing.T) {
	m := New()

	// MustRegister in New() would panic if any metric failed to register.
	// Verify the registry is functional by scraping it.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{"fetch_inflight_requests", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metric %q not found in /metrics output", name)
		}
	}
}

// ObserveFetch

func TestObserveFetch_CountsByOperationAndOutcome(t *testing.T) {
	m := New()

	m.ObserveFetch(OpLoad, OutcomeOK, 120*time.Millisecond, 2048)
	m.ObserveFetch(OpLoad, OutcomeError, 5*time.Millisecond, 0)
	m.ObserveFetch(OpProbe, OutcomeOK, 80*time.Millisecond, 512)

	fams := gather(t, m)
	total := fams["fetch_requests_total"]

	if v := counterValue(total, map[string]string{"operation": OpLoad, "outcome": OutcomeOK}); v != 1 {
		t.Errorf("load/ok = %v, want 1", v)
	}
	if v := counterValue(total, map[string]string{"operation": OpLoad, "outcome": OutcomeError}); v != 1 {
		t.Errorf("load/error = %v, want 1", v)
	}
	if v := counterValue(total, map[string]string{"operation": OpProbe, "outcome": OutcomeOK}); v != 1 {
		t.Errorf("probe/ok = %v, want 1", v)
	}
}

func TestObserveFetch_BytesOnlyOnSuccess(t *testing.T) {
	m := New()

	m.ObserveFetch(OpLoad, OutcomeError, time.Millisecond, 999)
	m.ObserveFetch(OpLoad, OutcomeOK, time.Millisecond, 100)

	fams := gather(t, m)
	hist := fams["fetch_payload_size_bytes"]
	if hist == nil {
		t.Fatal("fetch_payload_size_bytes missing")
	}
	if n := hist.GetMetric()[0].GetHistogram().GetSampleCount(); n != 1 {
		t.Fatalf("histogram sample count = %d, want 1 (failures excluded)", n)
	}
}

// inflight

func TestInflight_IncDec(t *testing.T) {
	m := New()
	m.IncInflight()
	m.IncInflight()
	m.DecInflight()

	fams := gather(t, m)
	g := fams["fetch_inflight_requests"].GetMetric()[0].GetGauge().GetValue()
	if g != 1 {
		t.Fatalf("inflight = %v, want 1", g)
	}
}

// build info

func TestSetBuildInfoFromVersion(t *testing.T) {
	m := New()
	vi := version.Get()
	m.SetBuildInfoFromVersion(&vi)

	fams := gather(t, m)
	bi := fams["build_info"]
	if bi == nil || len(bi.GetMetric()) != 1 {
		t.Fatal("build_info not populated")
	}
	if bi.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatal("build_info value should be 1")
	}
	found := false
	for _, lp := range bi.GetMetric()[0].GetLabel() {
		if lp.GetName() == "app" && lp.GetValue() == version.AppName {
			found = true
		}
	}
	if !found {
		t.Fatal("build_info missing app label")
	}
}
