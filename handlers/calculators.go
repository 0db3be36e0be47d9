package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/tlgayhan/pedi-mvp/dosing"
	"github.com/tlgayhan/pedi-mvp/fluids"
	"github.com/tlgayhan/pedi-mvp/metrics"
	"github.com/tlgayhan/pedi-mvp/pews"
	"github.com/tlgayhan/pedi-mvp/toxicology"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Calculator names used as the calculations_total label
const (
	CalcMaintenance = "maintenance"
	CalcDeficit     = "deficit"
	CalcDose        = "dose"
	CalcPEWS        = "pews"
	CalcToxicology  = "toxicology"
	CalcGaps        = "gaps"
)

type maintenanceRequest struct {
	WeightKg float64 `json:"weightKg"`
}

type maintenanceResponse struct {
	MlPerHour float64 `json:"mlPerHour"`
}

type deficitRequest struct {
	WeightKg float64 `json:"weightKg"`
	Percent  float64 `json:"percent"`
	Hours    float64 `json:"hours"`
}

const maxSupportLevel = 1 << 20

// pewsRequest takes oxygen and capRefill as numbers so that 2.5 is an
// out-of-range score rather than a decoding error
type pewsRequest struct {
	RespRate  float64 `json:"respRate"`
	Oxygen    float64 `json:"oxygen"`
	HeartRate float64 `json:"heartRate"`
	CapRefill float64 `json:"capRefill"`
	Behavior  string  `json:"behavior"`
}

// gapsRequest carries the lab values; na is required, the rest decide
// which gaps can be computed
type gapsRequest struct {
	Na          *float64 `json:"na"`
	Cl          *float64 `json:"cl,omitempty"`
	HCO3        *float64 `json:"hco3,omitempty"`
	MeasuredOsm *float64 `json:"measuredOsm,omitempty"`
	BUN         *float64 `json:"bun,omitempty"`
	Glucose     *float64 `json:"glucose,omitempty"`
	Ethanol     *float64 `json:"ethanol,omitempty"`
	Lactate     *float64 `json:"lactate,omitempty"`
}

type gapsResponse struct {
	AnionGap             *float64                 `json:"anionGap,omitempty"`
	CalculatedOsmolality *float64                 `json:"calculatedOsmolality,omitempty"`
	OsmolalGap           *float64                 `json:"osmolalGap,omitempty"`
	Lactate              *toxicology.LactateLevel `json:"lactate,omitempty"`
}

// MaintenanceFluids returns the Holliday-Segar maintenance rate
func (h *HTTPHandlerImpl) MaintenanceFluids(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rate, err := fluids.MaintenanceRate(req.WeightKg)
	if err != nil {
		h.respondCalculationError(w, CalcMaintenance, err)
		return
	}

	metrics.ObserveCalculation(CalcMaintenance, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, maintenanceResponse{MlPerHour: rate})
}

// DeficitFluids returns a dehydration replacement plan
func (h *HTTPHandlerImpl) DeficitFluids(w http.ResponseWriter, r *http.Request) {
	var req deficitRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	plan, err := fluids.DeficitPlan(req.WeightKg, req.Percent, req.Hours)
	if err != nil {
		h.respondCalculationError(w, CalcDeficit, err)
		return
	}

	metrics.ObserveCalculation(CalcDeficit, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, plan)
}

// ComputeDose doses a drug of the served formulary
func (h *HTTPHandlerImpl) ComputeDose(w http.ResponseWriter, r *http.Request) {
	var req dosing.DoseRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	res, err := snap.Formulary.Compute(req)
	if err != nil {
		h.respondCalculationError(w, CalcDose, err)
		return
	}

	metrics.ObserveCalculation(CalcDose, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, res)
}

// ScorePEWS scores the five PEWS parameters. Behavior is accepted in any casing.
func (h *HTTPHandlerImpl) ScorePEWS(w http.ResponseWriter, r *http.Request) {
	var req pewsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	oxygen, oxygenErr := supportLevel("oxygen", req.Oxygen)
	capRefill, capRefillErr := supportLevel("capRefill", req.CapRefill)

	res, err := pews.Score(pews.Inputs{
		RespRate:  req.RespRate,
		Oxygen:    oxygen,
		HeartRate: req.HeartRate,
		CapRefill: capRefill,
		Behavior:  pews.Behavior(validation.Fold(req.Behavior)),
	})
	if err != nil {
		// keep Score's field order, but describe the value the client sent
		var oor *validation.OutOfRangeError
		if errors.As(err, &oor) {
			switch {
			case oor.Field == "oxygen" && oxygenErr != nil:
				err = oxygenErr
			case oor.Field == "capRefill" && capRefillErr != nil:
				err = capRefillErr
			}
		}
		h.respondCalculationError(w, CalcPEWS, err)
		return
	}

	metrics.ObserveCalculation(CalcPEWS, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, res)
}

// supportLevel narrows a decoded oxygen or capRefill score to an int. A
// fractional value becomes -1, which Score rejects at the field's turn, and
// the returned error describes the original value.
func supportLevel(field string, v float64) (int, error) {
	if v == math.Trunc(v) && math.Abs(v) <= maxSupportLevel {
		return int(v), nil
	}
	return -1, validation.OutOfRange(field, fmt.Sprintf("must be one of 0, 2, 4 (got %v)", v))
}

// SuggestToxidromes ranks the toxidromes of the served database against the findings
func (h *HTTPHandlerImpl) SuggestToxidromes(w http.ResponseWriter, r *http.Request) {
	var in toxicology.Input
	if !h.decodeJSON(w, r, &in) {
		return
	}

	if err := h.validator.ValidateFindings(in.Findings); err != nil {
		metrics.ObserveCalculation(CalcToxicology, metrics.OutcomeOutOfRange)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	res := snap.ToxEngine.Suggest(in)

	metrics.ObserveCalculation(CalcToxicology, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, res)
}

// LabGaps computes whichever of anion gap, osmolal gap and lactate level
// the supplied values allow
func (h *HTTPHandlerImpl) LabGaps(w http.ResponseWriter, r *http.Request) {
	var req gapsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if req.Na == nil {
		h.respondCalculationError(w, CalcGaps, validation.OutOfRange("na", "required"))
		return
	}

	var res gapsResponse

	if req.Cl != nil && req.HCO3 != nil {
		ag := toxicology.AnionGap(*req.Na, *req.Cl, *req.HCO3)
		res.AnionGap = &ag
	}

	if req.MeasuredOsm != nil {
		bun, glucose, ethanol := valueOr(req.BUN), valueOr(req.Glucose), valueOr(req.Ethanol)
		calc := validation.RoundTo(toxicology.CalculatedOsmolality(*req.Na, bun, glucose, ethanol), 1)
		og := toxicology.OsmolalGap(*req.MeasuredOsm, *req.Na, bun, glucose, ethanol)
		res.CalculatedOsmolality = &calc
		res.OsmolalGap = &og
	}

	if req.Lactate != nil {
		level := toxicology.LactateFlag(*req.Lactate)
		res.Lactate = &level
	}

	metrics.ObserveCalculation(CalcGaps, metrics.OutcomeOK)
	h.RespondWithJSON(w, http.StatusOK, res)
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
