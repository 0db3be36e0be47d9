package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/validation"
)

type toxidromesResponse struct {
	Toxidromes []entities.Toxidrome `json:"toxidromes"`
	RedFlags   []string             `json:"redFlags"`
	Source     string               `json:"source"`
}

// ListDrugs returns the formulary in its original order. The optional q
// parameter filters by a case-insensitive substring of the id or name.
func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		h.RespondWithJSON(w, http.StatusOK, snap.Formulary.Drugs())
		return
	}

	if err := h.validator.ValidateFinding(q); err != nil {
		logging.Warn("Search query rejected", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	needle := validation.Fold(q)
	results := make([]entities.Drug, 0)
	for _, d := range snap.Formulary.Drugs() {
		if strings.Contains(validation.Fold(d.ID), needle) || strings.Contains(validation.Fold(d.Name), needle) {
			results = append(results, d)
		}
	}

	// Always return 200 with results array (empty if no matches)
	h.RespondWithJSON(w, http.StatusOK, results)
}

// GetDrug returns one formulary entry by case-insensitive id
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	drug, found := snap.Formulary.Drug(id)
	if !found {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// ListToxidromes returns the toxidrome database with its red flags
func (h *HTTPHandlerImpl) ListToxidromes(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	h.RespondWithJSON(w, http.StatusOK, toxidromesResponse{
		Toxidromes: snap.ToxDb.Toxidromes,
		RedFlags:   snap.ToxDb.RedFlags,
		Source:     snap.Source,
	})
}
