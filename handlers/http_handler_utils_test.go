package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tlgayhan/pedi-mvp/data"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

// MockHealthChecker returns a fixed health status
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	details := make(map[string]any, len(m.details))
	for k, v := range m.details {
		details[k] = v
	}
	return m.status, details, m.httpStatus
}

func (m *MockHealthChecker) NextReload() time.Time { return time.Time{} }

func healthyChecker() *MockHealthChecker {
	return &MockHealthChecker{status: "healthy", details: map[string]any{"drugs": 4}, httpStatus: http.StatusOK}
}

// loadedStore returns a data container serving the embedded reference data
func loadedStore(t testing.TB) *data.DataContainer {
	t.Helper()
	ds, err := reference.NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load embedded datasets: %v", err)
	}
	snap, err := reference.NewSnapshot(ds)
	if err != nil {
		t.Fatalf("Failed to build snapshot: %v", err)
	}

	store := data.NewDataContainer()
	store.UpdateData(snap, &validation.DataQualityReport{})
	return store
}

// newTestRouter mounts every endpoint the way the server does
func newTestRouter(h *HTTPHandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/fluids/maintenance", h.MaintenanceFluids)
		r.Post("/fluids/deficit", h.DeficitFluids)
		r.Post("/dose", h.ComputeDose)
		r.Post("/pews", h.ScorePEWS)
		r.Post("/toxicology/suggest", h.SuggestToxidromes)
		r.Post("/toxicology/gaps", h.LabGaps)
		r.Get("/drugs", h.ListDrugs)
		r.Get("/drugs/{id}", h.GetDrug)
		r.Get("/toxidromes", h.ListToxidromes)
		r.Get("/self-test", h.SelfTest)
	})
	r.Get("/health", h.HealthCheck)
	return r
}

func newLoadedRouter(t testing.TB) http.Handler {
	t.Helper()
	return newTestRouter(NewHTTPHandler(loadedStore(t), validation.NewDataValidator(), healthyChecker()))
}

func post(t testing.TB, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func get(t testing.TB, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decodeBody(t testing.TB, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func assertErrorField(t testing.TB, rr *httptest.ResponseRecorder, field string) {
	t.Helper()
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	var body ErrorResponse
	decodeBody(t, rr, &body)
	if body.Field != field {
		t.Errorf("Expected field %q, got %q (%s)", field, body.Field, body.Message)
	}
	if body.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected code 422 in body, got %d", body.Code)
	}
}
