package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// value reads the current value of a counter or gauge
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("reading metric: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/drugs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := value(t, HTTPRequestTotals.WithLabelValues("GET", "/v1/drugs/{id}", "404"))

	for _, id := range []string{"aspirin", "warfarin"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/drugs/"+id, nil))
	}

	after := value(t, HTTPRequestTotals.WithLabelValues("GET", "/v1/drugs/{id}", "404"))
	if after-before != 2 {
		t.Errorf("Expected 2 requests counted under the route pattern, got %v", after-before)
	}

	if got := value(t, HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests after completion, got %v", got)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := value(t, HTTPRequestTotals.WithLabelValues("GET", unmatchedRoute, "418"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))
	after := value(t, HTTPRequestTotals.WithLabelValues("GET", unmatchedRoute, "418"))

	if after-before != 1 {
		t.Errorf("Expected request without route context to be counted as unmatched, got %v", after-before)
	}
}

func TestObserveCalculation(t *testing.T) {
	c := CalculationsTotal.WithLabelValues("pews", OutcomeOutOfRange)
	before := value(t, c)

	ObserveCalculation("pews", OutcomeOutOfRange)

	if got := value(t, c) - before; got != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", got)
	}
}

func TestSetReferenceEntries(t *testing.T) {
	SetReferenceEntries(4, 6, 5)

	tests := map[string]float64{"drugs": 4, "toxidromes": 6, "red_flags": 5}
	for dataset, expected := range tests {
		if got := value(t, ReferenceEntries.WithLabelValues(dataset)); got != expected {
			t.Errorf("reference_entries{dataset=%q} = %v, want %v", dataset, got, expected)
		}
	}
}
