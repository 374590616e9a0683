package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := NewTestManager()
	m.CounterSetsLogged.Inc()
	m.CounterSetsLogged.Inc()
	m.CounterCompositionOps.WithLabelValues("add").Inc()

	if got := testutil.ToFloat64(m.CounterSetsLogged); got != 2 {
		t.Errorf("sets logged = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CounterCompositionOps.WithLabelValues("add")); got != 1 {
		t.Errorf("composition add = %v, want 1", got)
	}
}

// TestHandlerExposesMetrics verifies the handler renders the text format.
func TestHandlerExposesMetrics(t *testing.T) {
	m := NewTestManager()
	m.CounterSetPatches.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "liftlog_test_set_patches_total 1") {
		t.Errorf("body missing set_patches_total:\n%s", body)
	}
}

// TestNewRegistryRegistersCollectors verifies runtime collectors can be gathered.
func TestNewRegistryRegistersCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Error("expected runtime metric families")
	}
}
