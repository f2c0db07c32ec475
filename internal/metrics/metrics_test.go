package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordTokenRefresh_IncrementsCounter は結果別カウンタが増加することを検証する。
func TestRecordTokenRefresh_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenRefresh(RefreshResultSuccess)
	c.RecordTokenRefresh(RefreshResultSuccess)
	c.RecordTokenRefresh(RefreshResultFailure)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "cozypage_token_refresh_total" {
			found = true
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetValue() == RefreshResultSuccess && m.GetCounter().GetValue() != 2 {
						t.Errorf("expected success counter 2, got %f", m.GetCounter().GetValue())
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected cozypage_token_refresh_total to be registered")
	}
}

// TestRecordHTTPStatus_LabelsByCode はステータスコード別にラベル付けされることを検証する。
func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordRequestLatency(50 * time.Millisecond)
	c.RecordGoogleAPIError("gmail")
	c.RecordTodoNotify(NotifyResultSuccess)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(metrics) != 5 {
		t.Errorf("expected 5 metric families, got %d", len(metrics))
	}
}

// TestHandler_ServesMetrics は/metricsがPrometheus形式で応答することを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(200)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	if !strings.Contains(string(body), "cozypage_http_status_total") {
		t.Error("expected http status metric in scrape output")
	}
}
