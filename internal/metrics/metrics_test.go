package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRecordNotifyRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNotifyRun("delivered")
	c.RecordNotifyRun("delivered")
	c.RecordNotifyRun("gated")

	got := map[string]float64{}
	for _, m := range gather(t, reg, "shelfwatch_notify_runs_total") {
		got[label(m, "outcome")] = m.GetCounter().GetValue()
	}
	if got["delivered"] != 2 || got["gated"] != 1 {
		t.Errorf("notify runs = %v, want delivered=2 gated=1", got)
	}
}

func TestRecordDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDelivery("digest", true)
	c.RecordDelivery("individual", false)

	got := map[string]float64{}
	for _, m := range gather(t, reg, "shelfwatch_notify_deliveries_total") {
		got[label(m, "mode")+"/"+label(m, "result")] = m.GetCounter().GetValue()
	}
	if got["digest/ok"] != 1 || got["individual/failed"] != 1 {
		t.Errorf("deliveries = %v", got)
	}
}

func TestRecordItemsByStatusReplaces(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordItemsByStatus(map[string]int{"Active": 3, "Expired": 1})
	c.RecordItemsByStatus(map[string]int{"Active": 2})

	metrics := gather(t, reg, "shelfwatch_items")
	if len(metrics) != 1 {
		t.Fatalf("expected 1 series after reset, got %d", len(metrics))
	}
	if v := metrics[0].GetGauge().GetValue(); v != 2 {
		t.Errorf("Active = %v, want 2", v)
	}
}

func TestRecordLookupLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLookupLatency(250 * time.Millisecond)

	h := gather(t, reg, "shelfwatch_reorder_lookup_latency_seconds")[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() != 0.25 {
		t.Errorf("sample sum = %v, want 0.25", h.GetSampleSum())
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordResolve("fallback")
	c.RecordCachePurged(4)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`shelfwatch_reorder_resolves_total{source="fallback"} 1`,
		"shelfwatch_affiliate_cache_purged_total 4",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
