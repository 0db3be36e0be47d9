// Package dosing computes weight-based single and daily doses against a
// formulary, applying the per-drug weight guardrails, the single-dose cap and
// the daily limits.
package dosing

import (
	"math"

	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Dose rounding granularity in mg
const roundingStepMg = 5.0

// Weight window used when a drug carries no guardrails of its own
const (
	DefaultMinKg = 0.5
	DefaultMaxKg = 100.0
)

// Guardrail warnings, in the order they are evaluated
const (
	WarnSingleDoseCapped = "Single dose capped to maxSingle"
	WarnDailyPerKg       = "Daily total exceeds max per kg"
	WarnDailyAbsolute    = "Daily total exceeds absolute max"
)

// DoseRequest describes one dose calculation. DosesPerDay is optional; when
// nil it is derived from the route's dosing interval.
type DoseRequest struct {
	DrugID               string   `json:"drugId"`
	Route                string   `json:"route"`
	WeightKg             float64  `json:"weightKg"`
	ConcentrationMgPerMl float64  `json:"concentrationMgPerMl"`
	DosesPerDay          *float64 `json:"dosesPerDay,omitempty"`
}

type DoseResult struct {
	PerDoseMg        float64  `json:"perDoseMg"`
	PerDoseMl        float64  `json:"perDoseMl"`
	MaxApplied       bool     `json:"maxApplied"`
	DailyTotalMg     float64  `json:"dailyTotalMg"`
	DailyMaxExceeded bool     `json:"dailyMaxExceeded"`
	Warnings         []string `json:"warnings"`
}

// Formulary is a read-only, case-insensitive index over a DrugsDb.
// It is safe for concurrent use.
type Formulary struct {
	drugs []entities.Drug
	byID  map[string]int
}

// NewFormulary indexes db by folded drug id. On duplicate ids the first
// entry wins, matching an ordered lookup.
func NewFormulary(db entities.DrugsDb) *Formulary {
	f := &Formulary{
		drugs: make([]entities.Drug, len(db)),
		byID:  make(map[string]int, len(db)),
	}
	copy(f.drugs, db)
	for i, d := range f.drugs {
		key := validation.Fold(d.ID)
		if _, exists := f.byID[key]; !exists {
			f.byID[key] = i
		}
	}
	return f
}

// Drugs returns the formulary entries in their original order
func (f *Formulary) Drugs() []entities.Drug {
	return f.drugs
}

// Len returns the number of drugs in the formulary
func (f *Formulary) Len() int {
	return len(f.drugs)
}

// Drug returns a drug by case-insensitive id
func (f *Formulary) Drug(drugID string) (entities.Drug, bool) {
	i, ok := f.byID[validation.Fold(drugID)]
	if !ok {
		return entities.Drug{}, false
	}
	return f.drugs[i], true
}

// Lookup resolves a drug and one of its routes, both case-insensitively
func (f *Formulary) Lookup(drugID, route string) (entities.Drug, entities.DrugRoute, error) {
	drug, ok := f.Drug(drugID)
	if !ok {
		return entities.Drug{}, entities.DrugRoute{}, validation.OutOfRange("drugId", "drug not found")
	}

	key := validation.Fold(route)
	for _, r := range drug.Routes {
		if validation.Fold(r.Route) == key {
			return drug, r, nil
		}
	}
	return entities.Drug{}, entities.DrugRoute{}, validation.OutOfRange("route", "route not found")
}

// ResolveDosesPerDay returns the explicit doses/day when supplied, otherwise
// 24 / intervalH. The resolved value must be finite and positive.
func ResolveDosesPerDay(req DoseRequest, route entities.DrugRoute) (float64, error) {
	var dosesPerDay float64
	if req.DosesPerDay != nil {
		dosesPerDay = *req.DosesPerDay
	} else {
		dosesPerDay = 24 / route.IntervalH
	}

	if err := validation.RequireFinite("dosesPerDay", dosesPerDay); err != nil || dosesPerDay <= 0 {
		return 0, validation.OutOfRange("dosesPerDay", "invalid dosesPerDay")
	}
	return dosesPerDay, nil
}

// WeightWindow returns the drug's guardrails, falling back to the default
// window when none are configured
func WeightWindow(drug entities.Drug) entities.Guardrails {
	if drug.Guardrails == (entities.Guardrails{}) {
		return entities.Guardrails{MinKg: DefaultMinKg, MaxKg: DefaultMaxKg}
	}
	return drug.Guardrails
}

// Compute runs the dose calculation for req
func (f *Formulary) Compute(req DoseRequest) (DoseResult, error) {
	drug, route, err := f.Lookup(req.DrugID, req.Route)
	if err != nil {
		return DoseResult{}, err
	}

	window := WeightWindow(drug)
	if err := validation.RequireRange("weightKg", req.WeightKg, window.MinKg, window.MaxKg); err != nil {
		return DoseResult{}, validation.OutOfRange("weightKg", "weight out of range")
	}

	if err := validation.RequireFinite("concentrationMgPerMl", req.ConcentrationMgPerMl); err != nil || req.ConcentrationMgPerMl <= 0 {
		return DoseResult{}, validation.OutOfRange("concentrationMgPerMl", "concentration must be > 0")
	}

	dosesPerDay, err := ResolveDosesPerDay(req, route)
	if err != nil {
		return DoseResult{}, err
	}

	warnings := make([]string, 0, 3)

	baseMg := route.PerKgMg * req.WeightKg
	cappedMg := min(baseMg, route.MaxSingleMg)
	maxApplied := baseMg >= route.MaxSingleMg
	if maxApplied {
		warnings = append(warnings, WarnSingleDoseCapped)
	}

	perDoseMg := validation.RoundHalfUp(cappedMg/roundingStepMg) * roundingStepMg
	if perDoseMg > route.MaxSingleMg {
		// maxSingle not on the 5 mg grid: step down instead of rounding past
		// the cap, which makes the cap the binding limit
		perDoseMg = math.Floor(route.MaxSingleMg/roundingStepMg) * roundingStepMg
		if !maxApplied {
			maxApplied = true
			warnings = append(warnings, WarnSingleDoseCapped)
		}
	}
	perDoseMl := validation.RoundTo(perDoseMg/req.ConcentrationMgPerMl, 1)
	dailyTotalMg := validation.RoundHalfUp(perDoseMg * dosesPerDay)

	exceedPerKg := dailyTotalMg > route.MaxDailyMgPerKg*req.WeightKg
	if exceedPerKg {
		warnings = append(warnings, WarnDailyPerKg)
	}

	exceedAbs := route.MaxDailyMgAbs != nil && *route.MaxDailyMgAbs > 0 && dailyTotalMg > *route.MaxDailyMgAbs
	if exceedAbs {
		warnings = append(warnings, WarnDailyAbsolute)
	}

	return DoseResult{
		PerDoseMg:        perDoseMg,
		PerDoseMl:        perDoseMl,
		MaxApplied:       maxApplied,
		DailyTotalMg:     dailyTotalMg,
		DailyMaxExceeded: exceedPerKg || exceedAbs,
		Warnings:         warnings,
	}, nil
}

// ComputeDose is a one-shot helper that indexes db and computes req.
// Callers dosing repeatedly against the same formulary should keep a
// *Formulary instead.
func ComputeDose(req DoseRequest, db entities.DrugsDb) (DoseResult, error) {
	return NewFormulary(db).Compute(req)
}
