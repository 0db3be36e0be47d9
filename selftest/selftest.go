// Package selftest runs a fixed set of reference scenarios through every
// calculator and reports pass/fail per scenario. It uses its own fixture
// formulary and toxidrome database, so results do not depend on the data
// being served.
package selftest

import (
	"fmt"
	"time"

	"github.com/tlgayhan/pedi-mvp/dosing"
	"github.com/tlgayhan/pedi-mvp/fluids"
	"github.com/tlgayhan/pedi-mvp/pews"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/toxicology"
)

// Scenario kinds
const (
	KindMaintenance = "maintenance"
	KindDeficit     = "deficit"
	KindPEWS        = "pews"
	KindDose        = "dose"
	KindToxicology  = "toxicology"
	KindLabs        = "labs"
)

// Case is one scenario. Run returns a rendering of what was computed and
// whether it matched; an expected error passes only when Run fails.
type Case struct {
	Kind        string
	Name        string
	ExpectError bool
	Run         func() (got string, pass bool, err error)
}

type CaseResult struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

type Report struct {
	AllPass bool         `json:"allPass"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Results []CaseResult `json:"results"`
	RanAt   time.Time    `json:"ranAt"`
}

// Run executes the built-in scenarios
func Run() *Report {
	return RunCases(Cases())
}

// RunCases executes cases in order
func RunCases(cases []Case) *Report {
	report := &Report{
		Results: make([]CaseResult, 0, len(cases)),
		RanAt:   time.Now(),
	}

	for _, c := range cases {
		r := evaluate(c)
		if r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, r)
	}

	report.AllPass = report.Failed == 0
	return report
}

func evaluate(c Case) (res CaseResult) {
	res = CaseResult{Kind: c.Kind, Name: c.Name}

	defer func() {
		if r := recover(); r != nil {
			res.Pass = false
			res.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	got, pass, err := c.Run()
	switch {
	case c.ExpectError && err != nil:
		res.Pass = true
		res.Message = "error: " + err.Error()
	case c.ExpectError:
		res.Message = "expected an error, got " + got
	case err != nil:
		res.Message = "error: " + err.Error()
	default:
		res.Pass = pass
		res.Message = got
	}
	return res
}

func ptr(v float64) *float64 { return &v }

// Fixture formulary, independent of the served reference data
var fixtureDrugs = entities.DrugsDb{
	{
		ID:   "paracetamol",
		Name: "Parasetamol",
		Routes: []entities.DrugRoute{
			{Route: "PO", PerKgMg: 10, MaxSingleMg: 500, MaxDailyMgPerKg: 60, MaxDailyMgAbs: ptr(4000), IntervalH: 6, ConcentrationsMgPerMl: []float64{24}},
		},
		Guardrails: entities.Guardrails{MinKg: 2, MaxKg: 100},
	},
	{
		ID:   "ibuprofen",
		Name: "İbuprofen",
		Routes: []entities.DrugRoute{
			{Route: "PO", PerKgMg: 10, MaxSingleMg: 400, MaxDailyMgPerKg: 40, MaxDailyMgAbs: ptr(1200), IntervalH: 6, ConcentrationsMgPerMl: []float64{40}},
		},
		Guardrails: entities.Guardrails{MinKg: 5, MaxKg: 100},
	},
}

var fixtureToxDb = entities.ToxDb{
	Toxidromes: []entities.Toxidrome{
		{
			ID:          "opioid",
			KeyFindings: []string{"miyozis", "sss depresyonu", "solunum depresyonu", "bradikardi"},
			NegFindings: []string{"midriazis", "ajitasyon", "taşikardi"},
		},
		{
			ID:          "cholinergic",
			KeyFindings: []string{"miyozis", "bradikardi", "terleme belirgin", "hipersalivasyon", "bronkore", "kusma/ishal"},
			NegFindings: []string{"midriazis", "kuru deri/sıcak"},
		},
	},
	RedFlags: []string{"Nöbet", "Solunum depresyonu", "Hipertermi > 40°C", "Persistan hipotansiyon"},
}

// Cases returns the built-in scenarios
func Cases() []Case {
	formulary := dosing.NewFormulary(fixtureDrugs)

	return []Case{
		maintenance("maintenance 3 kg", 3, 12),
		maintenance("maintenance 10 kg", 10, 40),
		maintenance("maintenance 20 kg", 20, 60),
		maintenance("maintenance 35 kg", 35, 75),
		maintenanceError("maintenance -1 kg", -1),

		deficit("deficit 14 kg 5% 24 h", 14, 5, 24, 700, 77),
		deficit("deficit 10 kg 3% 24 h", 10, 3, 24, 300, 53),
		deficitError("deficit 12% out of range", 10, 12, 24),

		pewsCase("pews all normal", pews.Inputs{RespRate: 28, Oxygen: 0, HeartRate: 90, CapRefill: 0, Behavior: pews.BehaviorAlert}, 0, pews.TierLow),
		pewsCase("pews medium", pews.Inputs{RespRate: 40, Oxygen: 2, HeartRate: 90, CapRefill: 0, Behavior: pews.BehaviorAlert}, 3, pews.TierMed),
		pewsCase("pews high", pews.Inputs{RespRate: 40, Oxygen: 2, HeartRate: 120, CapRefill: 0, Behavior: pews.BehaviorVoice}, 5, pews.TierHigh),
		pewsCase("pews critical", pews.Inputs{RespRate: 65, Oxygen: 4, HeartRate: 180, CapRefill: 4, Behavior: pews.BehaviorPain}, 16, pews.TierHigh),
		pewsError("pews oxygen 3", pews.Inputs{RespRate: 20, Oxygen: 3, HeartRate: 80, CapRefill: 0, Behavior: pews.BehaviorAlert}),

		dose(formulary, "paracetamol PO 14 kg", dosing.DoseRequest{DrugID: "paracetamol", Route: "PO", WeightKg: 14, ConcentrationMgPerMl: 24}, 140, 5.8, 560),
		dose(formulary, "ibuprofen PO 10 kg", dosing.DoseRequest{DrugID: "ibuprofen", Route: "PO", WeightKg: 10, ConcentrationMgPerMl: 40}, 100, 2.5, 400),
		dose(formulary, "paracetamol PO 50 kg capped", dosing.DoseRequest{DrugID: "paracetamol", Route: "PO", WeightKg: 50, ConcentrationMgPerMl: 24}, 500, 20.8, 2000),
		doseError(formulary, "ibuprofen below weight window", dosing.DoseRequest{DrugID: "ibuprofen", Route: "PO", WeightKg: 3, ConcentrationMgPerMl: 40}),

		toxCase("opioid pattern", toxicology.Input{Findings: []string{"Miyozis", "solunum depresyonu", "bradikardi"}}, "opioid", 75, 1),

		{
			Kind: KindLabs,
			Name: "anion gap 140/105/24",
			Run: func() (string, bool, error) {
				ag := toxicology.AnionGap(140, 105, 24)
				return fmt.Sprintf("got %v, expected 11", ag), ag == 11, nil
			},
		},
		{
			Kind: KindLabs,
			Name: "osmolal gap 300 measured",
			Run: func() (string, bool, error) {
				og := toxicology.OsmolalGap(300, 140, 14, 90, 0)
				return fmt.Sprintf("got %v, expected 10", og), og == 10, nil
			},
		},
	}
}

func maintenance(name string, kg, expected float64) Case {
	return Case{
		Kind: KindMaintenance,
		Name: name,
		Run: func() (string, bool, error) {
			got, err := fluids.MaintenanceRate(kg)
			if err != nil {
				return "", false, err
			}
			return fmt.Sprintf("got %v, expected %v", got, expected), got == expected, nil
		},
	}
}

func maintenanceError(name string, kg float64) Case {
	c := maintenance(name, kg, 0)
	c.ExpectError = true
	return c
}

func deficit(name string, kg, pct, hours float64, deficitMl, hourlyMl int) Case {
	return Case{
		Kind: KindDeficit,
		Name: name,
		Run: func() (string, bool, error) {
			plan, err := fluids.DeficitPlan(kg, pct, hours)
			if err != nil {
				return "", false, err
			}
			pass := plan.DeficitMl == deficitMl && plan.HourlyMl == hourlyMl
			return fmt.Sprintf("got {%d, %d}, expected {%d, %d}", plan.DeficitMl, plan.HourlyMl, deficitMl, hourlyMl), pass, nil
		},
	}
}

func deficitError(name string, kg, pct, hours float64) Case {
	c := deficit(name, kg, pct, hours, 0, 0)
	c.ExpectError = true
	return c
}

func pewsCase(name string, in pews.Inputs, total int, tier pews.Tier) Case {
	return Case{
		Kind: KindPEWS,
		Name: name,
		Run: func() (string, bool, error) {
			res, err := pews.Score(in)
			if err != nil {
				return "", false, err
			}
			pass := res.Total == total && res.Tier == tier
			return fmt.Sprintf("got total %d, tier %s; expected %d/%s", res.Total, res.Tier, total, tier), pass, nil
		},
	}
}

func pewsError(name string, in pews.Inputs) Case {
	c := pewsCase(name, in, 0, pews.TierLow)
	c.ExpectError = true
	return c
}

func dose(f *dosing.Formulary, name string, req dosing.DoseRequest, perDoseMg, perDoseMl, dailyMg float64) Case {
	return Case{
		Kind: KindDose,
		Name: name,
		Run: func() (string, bool, error) {
			res, err := f.Compute(req)
			if err != nil {
				return "", false, err
			}
			pass := res.PerDoseMg == perDoseMg && res.PerDoseMl == perDoseMl && res.DailyTotalMg == dailyMg
			return fmt.Sprintf("got %v mg / %v mL / %v mg daily, expected %v / %v / %v",
				res.PerDoseMg, res.PerDoseMl, res.DailyTotalMg, perDoseMg, perDoseMl, dailyMg), pass, nil
		},
	}
}

func doseError(f *dosing.Formulary, name string, req dosing.DoseRequest) Case {
	c := dose(f, name, req, 0, 0, 0)
	c.ExpectError = true
	return c
}

func toxCase(name string, in toxicology.Input, topID string, topScore, redFlags int) Case {
	return Case{
		Kind: KindToxicology,
		Name: name,
		Run: func() (string, bool, error) {
			res, err := toxicology.SuggestToxidromes(in, fixtureToxDb)
			if err != nil {
				return "", false, err
			}
			if len(res.Suggestions) == 0 {
				return "got no suggestions", false, nil
			}
			top := res.Suggestions[0]
			pass := top.ToxidromeID == topID && top.Score == topScore && len(res.RedFlags) == redFlags
			return fmt.Sprintf("got %s %d with %d red flags, expected %s %d with %d",
				top.ToxidromeID, top.Score, len(res.RedFlags), topID, topScore, redFlags), pass, nil
		},
	}
}
