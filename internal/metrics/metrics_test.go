package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			match := true
			for _, label := range m.GetLabel() {
				if want, ok := labels[label.GetName()]; ok && want != label.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// --- テスト ---

func TestCollector_RecordLoginSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess("local")
	c.RecordLoginSuccess("local")
	c.RecordLoginSuccess("google")

	if got := counterValue(t, reg, "secretbox_login_success_total", map[string]string{"method": "local"}); got != 2 {
		t.Errorf("expected 2 local successes, got %v", got)
	}
	if got := counterValue(t, reg, "secretbox_login_success_total", map[string]string{"method": "google"}); got != 1 {
		t.Errorf("expected 1 google success, got %v", got)
	}
}

func TestCollector_RecordLoginFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginFailure("local")

	if got := counterValue(t, reg, "secretbox_login_fail_total", map[string]string{"method": "local"}); got != 1 {
		t.Errorf("expected 1 local failure, got %v", got)
	}
}

func TestCollector_RecordRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRegistration()
	c.RecordRegistration()

	if got := counterValue(t, reg, "secretbox_registrations_total", nil); got != 2 {
		t.Errorf("expected 2 registrations, got %v", got)
	}
}

func TestCollector_RecordProviderFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderFailure("exchange_failed")

	if got := counterValue(t, reg, "secretbox_provider_failures_total", map[string]string{"reason": "exchange_failed"}); got != 1 {
		t.Errorf("expected 1 provider failure, got %v", got)
	}
}

func TestCollector_RecordSecretSubmitted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSecretSubmitted()

	if got := counterValue(t, reg, "secretbox_secrets_submitted_total", nil); got != 1 {
		t.Errorf("expected 1 submission, got %v", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLoginSuccess("local")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics endpoint should return a body")
	}
}
