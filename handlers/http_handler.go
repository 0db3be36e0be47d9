// Package handlers provides the HTTP handlers for the calculator endpoints,
// the reference data listings, the self-test and the health check.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tlgayhan/pedi-mvp/interfaces"
	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/metrics"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/selftest"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// ErrorResponse is the body of every error answer. Field is set for
// rejected calculator inputs.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// respondCalculationError answers a failed calculation and counts it.
// Rejected inputs are 422 with the offending field.
func (h *HTTPHandlerImpl) respondCalculationError(w http.ResponseWriter, calculator string, err error) {
	var oor *validation.OutOfRangeError
	if errors.As(err, &oor) {
		metrics.ObserveCalculation(calculator, metrics.OutcomeOutOfRange)
		h.RespondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: oor.Error(),
			Field:   oor.Field,
			Code:    http.StatusUnprocessableEntity,
		})
		return
	}

	metrics.ObserveCalculation(calculator, metrics.OutcomeError)
	logging.Error("Calculation failed", "calculator", calculator, "error", err)
	h.RespondWithError(w, http.StatusInternalServerError, "Calculation failed")
}

// decodeJSON reads exactly one JSON object from the body into v, answering
// the client itself when it cannot
func (h *HTTPHandlerImpl) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil {
		if dec.Decode(&struct{}{}) != io.EOF {
			err = errors.New("body must contain a single JSON object")
		}
	}
	if err == nil {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		h.RespondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit))
	case errors.Is(err, io.EOF):
		h.RespondWithError(w, http.StatusBadRequest, "Request body is empty")
	default:
		logging.Warn("Malformed request body", "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, "Malformed JSON: "+err.Error())
	}
	return false
}

// snapshot returns the served reference data, answering 503 when none is loaded yet
func (h *HTTPHandlerImpl) snapshot(w http.ResponseWriter) (*reference.Snapshot, bool) {
	snap := h.dataStore.GetSnapshot()
	if snap == nil {
		h.RespondWithError(w, http.StatusServiceUnavailable, "Reference data is not loaded yet")
		return nil, false
	}
	return snap, true
}

// SelfTest runs the built-in scenarios. Any failing scenario answers 500.
func (h *HTTPHandlerImpl) SelfTest(w http.ResponseWriter, r *http.Request) {
	report := selftest.Run()

	code := http.StatusOK
	if !report.AllPass {
		code = http.StatusInternalServerError
		logging.Error("Self-test failed", "passed", report.Passed, "failed", report.Failed)
	}
	h.RespondWithJSON(w, code, report)
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()
	if data == nil {
		data = map[string]any{}
	}
	data["checked_at"] = time.Now().UTC().Format(time.RFC3339)

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Data:   data,
	})
}
