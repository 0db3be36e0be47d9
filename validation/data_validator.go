package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tlgayhan/pedi-mvp/reference/entities"
)

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Input limits
const (
	MaxFindings      = 40
	MaxFindingLength = 64
	MaxIDLength      = 64
	MaxIntervalH     = 72.0
)

// DataQualityReport lists problems in the reference data that do not stop it
// from being served
type DataQualityReport struct {
	DuplicateDrugIDs             []string
	RoutesWithoutConcentrations  []string // "drug/route"
	DrugsWithoutGuardrails       []string
	ToxidromesWithoutKeyFindings []string
	ContradictoryFindings        []string // "toxidrome: finding", listed as both key and negative
	UnknownRuleTargets           []string
	DuplicateRedFlags            []string
}

// Issues returns the total number of problems in the report
func (r *DataQualityReport) Issues() int {
	return len(r.DuplicateDrugIDs) +
		len(r.RoutesWithoutConcentrations) +
		len(r.DrugsWithoutGuardrails) +
		len(r.ToxidromesWithoutKeyFindings) +
		len(r.ContradictoryFindings) +
		len(r.UnknownRuleTargets) +
		len(r.DuplicateRedFlags)
}

// DataValidatorImpl validates the reference datasets and untrusted request input
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateDrug checks that a formulary entry can be dosed
func (v *DataValidatorImpl) ValidateDrug(d *entities.Drug) error {
	if d == nil {
		return fmt.Errorf("drug cannot be nil")
	}

	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("drug id cannot be empty")
	}

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("drug %s: name cannot be empty", d.ID)
	}

	if len(d.Routes) == 0 {
		return fmt.Errorf("drug %s: at least one route is required", d.ID)
	}

	seen := make(map[string]bool, len(d.Routes))
	for i := range d.Routes {
		r := &d.Routes[i]
		key := Fold(r.Route)
		if key == "" {
			return fmt.Errorf("drug %s: route %d has no name", d.ID, i)
		}
		if seen[key] {
			return fmt.Errorf("drug %s: duplicate route %s", d.ID, r.Route)
		}
		seen[key] = true

		if err := validateRoute(r); err != nil {
			return fmt.Errorf("drug %s route %s: %w", d.ID, r.Route, err)
		}
	}

	g := d.Guardrails
	if g != (entities.Guardrails{}) {
		if !positive(g.MinKg) || !positive(g.MaxKg) || g.MinKg >= g.MaxKg {
			return fmt.Errorf("drug %s: guardrails must satisfy 0 < minKg < maxKg, got %v-%v", d.ID, g.MinKg, g.MaxKg)
		}
	}

	return nil
}

func validateRoute(r *entities.DrugRoute) error {
	if !positive(r.PerKgMg) {
		return fmt.Errorf("perKgMg must be positive, got %v", r.PerKgMg)
	}
	if !positive(r.MaxSingleMg) {
		return fmt.Errorf("maxSingleMg must be positive, got %v", r.MaxSingleMg)
	}
	if !positive(r.MaxDailyMgPerKg) {
		return fmt.Errorf("maxDailyMgPerKg must be positive, got %v", r.MaxDailyMgPerKg)
	}
	if r.MaxDailyMgAbs != nil && !positive(*r.MaxDailyMgAbs) {
		return fmt.Errorf("maxDailyMgAbs must be positive when set, got %v", *r.MaxDailyMgAbs)
	}
	if !positive(r.IntervalH) || r.IntervalH > MaxIntervalH {
		return fmt.Errorf("intervalH must be in (0, %v], got %v", MaxIntervalH, r.IntervalH)
	}
	for _, c := range r.ConcentrationsMgPerMl {
		if !positive(c) {
			return fmt.Errorf("concentrations must be positive, got %v", c)
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ValidateFormulary validates every drug. Duplicate ids are legal (the first
// entry wins) and are only reported by ReportDataQuality.
func (v *DataValidatorImpl) ValidateFormulary(db entities.DrugsDb) error {
	if len(db) == 0 {
		return fmt.Errorf("formulary is empty")
	}

	var errs []error
	for i := range db {
		if err := v.ValidateDrug(&db[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateToxDb checks the toxidrome database structure and its vital rules
func (v *DataValidatorImpl) ValidateToxDb(db entities.ToxDb) error {
	if db.Toxidromes == nil {
		return fmt.Errorf("toxidromes are missing")
	}
	if db.RedFlags == nil {
		return fmt.Errorf("redFlags are missing")
	}

	var errs []error
	ids := make(map[string]bool, len(db.Toxidromes))
	for i, t := range db.Toxidromes {
		if strings.TrimSpace(t.ID) == "" {
			errs = append(errs, fmt.Errorf("toxidrome %d: id cannot be empty", i))
			continue
		}
		if ids[t.ID] {
			errs = append(errs, fmt.Errorf("duplicate toxidrome id %s", t.ID))
		}
		ids[t.ID] = true
	}

	for i, r := range db.VitalRules {
		switch r.Vital {
		case entities.VitalHR, entities.VitalBPSys, entities.VitalTempC:
		default:
			errs = append(errs, fmt.Errorf("vital rule %d: unknown vital %q", i, r.Vital))
		}
		switch r.Op {
		case entities.OpAtLeast, entities.OpAtMost:
		default:
			errs = append(errs, fmt.Errorf("vital rule %d: unknown operator %q", i, r.Op))
		}
		if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) || math.IsNaN(r.Bonus) || math.IsInf(r.Bonus, 0) {
			errs = append(errs, fmt.Errorf("vital rule %d: threshold and bonus must be finite", i))
		}
	}

	return errors.Join(errs...)
}

// ReportDataQuality collects the non-fatal problems of both datasets
func (v *DataValidatorImpl) ReportDataQuality(drugs entities.DrugsDb, tox entities.ToxDb) *DataQualityReport {
	report := &DataQualityReport{
		DuplicateDrugIDs:             []string{},
		RoutesWithoutConcentrations:  []string{},
		DrugsWithoutGuardrails:       []string{},
		ToxidromesWithoutKeyFindings: []string{},
		ContradictoryFindings:        []string{},
		UnknownRuleTargets:           []string{},
		DuplicateRedFlags:            []string{},
	}

	drugIDs := make(map[string]bool, len(drugs))
	for _, d := range drugs {
		key := Fold(d.ID)
		if drugIDs[key] {
			report.DuplicateDrugIDs = append(report.DuplicateDrugIDs, d.ID)
		}
		drugIDs[key] = true

		if d.Guardrails == (entities.Guardrails{}) {
			report.DrugsWithoutGuardrails = append(report.DrugsWithoutGuardrails, d.ID)
		}

		for _, r := range d.Routes {
			if len(r.ConcentrationsMgPerMl) == 0 {
				report.RoutesWithoutConcentrations = append(report.RoutesWithoutConcentrations, d.ID+"/"+r.Route)
			}
		}
	}

	toxIDs := make(map[string]bool, len(tox.Toxidromes))
	for _, t := range tox.Toxidromes {
		toxIDs[t.ID] = true

		if len(t.KeyFindings) == 0 {
			report.ToxidromesWithoutKeyFindings = append(report.ToxidromesWithoutKeyFindings, t.ID)
		}

		neg := make(map[string]bool, len(t.NegFindings))
		for _, f := range t.NegFindings {
			neg[Fold(f)] = true
		}
		for _, f := range t.KeyFindings {
			if neg[Fold(f)] {
				report.ContradictoryFindings = append(report.ContradictoryFindings, t.ID+": "+f)
			}
		}
	}

	for _, r := range tox.VitalRules {
		if !toxIDs[r.ToxidromeID] {
			report.UnknownRuleTargets = append(report.UnknownRuleTargets, r.ToxidromeID)
		}
	}

	flags := make(map[string]bool, len(tox.RedFlags))
	for _, f := range tox.RedFlags {
		key := Fold(f)
		if flags[key] {
			report.DuplicateRedFlags = append(report.DuplicateRedFlags, f)
		}
		flags[key] = true
	}

	return report
}

// ValidateFinding bounds the size of one free-text clinical finding. The
// content itself is never rejected: text the knowledge base does not know
// simply matches nothing.
func (v *DataValidatorImpl) ValidateFinding(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fmt.Errorf("finding cannot be empty")
	}

	if utf8.RuneCountInString(trimmed) > MaxFindingLength {
		return fmt.Errorf("finding too long: maximum %d characters", MaxFindingLength)
	}

	return nil
}

// ValidateFindings validates a findings list. Blank entries are skipped here
// because the engine ignores them.
func (v *DataValidatorImpl) ValidateFindings(findings []string) error {
	if len(findings) > MaxFindings {
		return fmt.Errorf("too many findings: maximum %d allowed", MaxFindings)
	}

	for i, f := range findings {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := v.ValidateFinding(f); err != nil {
			return fmt.Errorf("findings[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateID validates a drug or toxidrome id taken from a URL path
func (v *DataValidatorImpl) ValidateID(input string) (string, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return "", fmt.Errorf("id cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return "", fmt.Errorf("id contains invalid characters. Only letters, digits, '-' and '_' are allowed")
	}

	if len(trimmedInput) > MaxIDLength {
		return "", fmt.Errorf("id too long: maximum %d characters", MaxIDLength)
	}

	if !idRegex.MatchString(trimmedInput) {
		return "", fmt.Errorf("id contains invalid characters. Only letters, digits, '-' and '_' are allowed")
	}

	return trimmedInput, nil
}
