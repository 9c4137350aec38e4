package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	snapshot goPassport.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goPassport.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func gather(t *testing.T, src MetricsSource) map[string]*dto.MetricFamily {
	t.Helper()
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(src)); err != nil {
		t.Fatalf("register collector: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestCollectorExportsCountersAndHistogram(t *testing.T) {
	families := gather(t, fakeSource{
		snapshot: goPassport.MetricsSnapshot{
			Counters: map[goPassport.MetricID]uint64{
				goPassport.MetricTokenInvalid: 7,
			},
			Histograms: map[goPassport.MetricID][]uint64{
				goPassport.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	invalid, ok := families["gopassport_token_invalid_total"]
	if !ok {
		t.Fatal("expected token_invalid counter")
	}
	if got := invalid.GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected token_invalid=7, got %v", got)
	}

	dropped := families["gopassport_audit_dropped_total"]
	if dropped == nil || dropped.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected audit_dropped=2, got %v", dropped)
	}

	hist := families["gopassport_validate_latency_seconds"]
	if hist == nil || hist.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("expected latency histogram, got %v", hist)
	}
	h := hist.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if len(buckets) != 7 {
		t.Fatalf("expected 7 finite buckets, got %d", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket %v", buckets[0])
	}
	if buckets[6].GetUpperBound() != 0.5 || buckets[6].GetCumulativeCount() != 28 {
		t.Fatalf("unexpected last finite bucket %v", buckets[6])
	}
}

func TestCollectorZeroWhenMetricsDisabled(t *testing.T) {
	families := gather(t, fakeSource{snapshot: goPassport.MetricsSnapshot{
		Counters:   map[goPassport.MetricID]uint64{},
		Histograms: map[goPassport.MetricID][]uint64{},
	}})

	mf := families["gopassport_credential_authenticated_total"]
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 0 {
		t.Fatalf("expected zero counter, got %v", mf)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	srv := httptest.NewServer(Handler(fakeSource{snapshot: goPassport.MetricsSnapshot{
		Counters: map[goPassport.MetricID]uint64{goPassport.MetricCredentialInvalidPassword: 4},
	}}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	if !strings.Contains(string(body), "gopassport_credential_invalid_password_total 4") {
		t.Fatalf("expected invalid_password counter in output, got:\n%s", body)
	}
}
