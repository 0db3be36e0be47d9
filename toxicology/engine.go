// Package toxicology suggests toxidromes from clinical findings and vitals and
// computes the related laboratory gaps.
package toxicology

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// ErrMalformedDB is returned when a ToxDb lacks its toxidromes or red flags
var ErrMalformedDB = errors.New("malformed toxidrome database")

// MinScore is the lowest score that is still suggested
const MinScore = 20

// Vital-derived red flags, looked up in the database by substring first
const (
	HyperthermiaThresholdC = 40.0
	HypotensionSystolic    = 80.0

	hyperthermiaKey     = "hipertermi"
	hypotensionKey      = "hipotansiyon"
	DefaultHyperthermia = "Hipertermi > 40°C"
	DefaultHypotension  = "Persistan hipotansiyon"
)

// DefaultVitalRules is used when the database carries no rules of its own
var DefaultVitalRules = []entities.VitalRule{
	{ToxidromeID: "sympathomimetic", Vital: entities.VitalHR, Op: entities.OpAtLeast, Threshold: 120, Bonus: 0.5},
	{ToxidromeID: "anticholinergic", Vital: entities.VitalHR, Op: entities.OpAtLeast, Threshold: 120, Bonus: 0.5},
	{ToxidromeID: "opioid", Vital: entities.VitalHR, Op: entities.OpAtMost, Threshold: 60, Bonus: 0.5},
	{ToxidromeID: "sympathomimetic", Vital: entities.VitalTempC, Op: entities.OpAtLeast, Threshold: 38.5, Bonus: 0.5},
	{ToxidromeID: "serotonin", Vital: entities.VitalTempC, Op: entities.OpAtLeast, Threshold: 38.5, Bonus: 0.5},
}

type Vitals struct {
	HR    *float64 `json:"hr,omitempty"`
	BPSys *float64 `json:"bpSys,omitempty"`
	TempC *float64 `json:"tempC,omitempty"`
}

// Labs are accepted for completeness; they do not affect scoring
type Labs struct {
	AnionGap *float64 `json:"anionGap,omitempty"`
	OsmolGap *float64 `json:"osmolGap,omitempty"`
}

type Input struct {
	Findings []string `json:"findings"`
	Vitals   *Vitals  `json:"vitals,omitempty"`
	Labs     *Labs    `json:"labs,omitempty"`
}

type Suggestion struct {
	ToxidromeID string   `json:"toxidromeId"`
	Score       int      `json:"score"`
	Matched     []string `json:"matched"`
	Conflicts   []string `json:"conflicts"`
}

type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	RedFlags    []string     `json:"redFlags"`
}

type foldedToxidrome struct {
	tox  entities.Toxidrome
	key  []string
	neg  []string
	bias []entities.VitalRule
}

// Engine holds a toxidrome database with its finding keys folded once.
// It is immutable after NewEngine and safe for concurrent use.
type Engine struct {
	toxidromes []foldedToxidrome
	redFlags   []string
	redKeys    map[string]struct{}
}

// NewEngine validates db and prepares it for matching
func NewEngine(db entities.ToxDb) (*Engine, error) {
	if db.Toxidromes == nil {
		return nil, errors.Join(ErrMalformedDB, errors.New("missing toxidromes"))
	}
	if db.RedFlags == nil {
		return nil, errors.Join(ErrMalformedDB, errors.New("missing redFlags"))
	}

	rules := db.VitalRules
	if len(rules) == 0 {
		rules = DefaultVitalRules
	}

	e := &Engine{
		toxidromes: make([]foldedToxidrome, len(db.Toxidromes)),
		redFlags:   slices.Clone(db.RedFlags),
		redKeys:    make(map[string]struct{}, len(db.RedFlags)),
	}

	for i, t := range db.Toxidromes {
		ft := foldedToxidrome{
			tox: t,
			key: foldAll(t.KeyFindings),
			neg: foldAll(t.NegFindings),
		}
		for _, r := range rules {
			if r.ToxidromeID == t.ID {
				ft.bias = append(ft.bias, r)
			}
		}
		e.toxidromes[i] = ft
	}

	for _, f := range db.RedFlags {
		e.redKeys[validation.Fold(f)] = struct{}{}
	}

	return e, nil
}

func foldAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = validation.Fold(s)
	}
	return out
}

// Len returns the number of toxidromes in the engine
func (e *Engine) Len() int {
	return len(e.toxidromes)
}

// SuggestToxidromes builds a one-off engine for db and runs in through it
func SuggestToxidromes(in Input, db entities.ToxDb) (Result, error) {
	e, err := NewEngine(db)
	if err != nil {
		return Result{}, err
	}
	return e.Suggest(in), nil
}

// Suggest ranks candidate toxidromes and collects red flags. Unmatched
// findings are not an error.
func (e *Engine) Suggest(in Input) Result {
	// folded key -> first caller spelling, in first-seen order
	findings := make(map[string]string, len(in.Findings))
	order := make([]string, 0, len(in.Findings))
	for _, f := range in.Findings {
		k := validation.Fold(f)
		if k == "" {
			continue
		}
		if _, seen := findings[k]; !seen {
			findings[k] = f
			order = append(order, k)
		}
	}

	suggestions := make([]Suggestion, 0, len(e.toxidromes))
	for _, ft := range e.toxidromes {
		s := e.score(ft, findings, in.Vitals)
		if s.Score >= MinScore {
			suggestions = append(suggestions, s)
		}
	}
	slices.SortStableFunc(suggestions, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ToxidromeID, b.ToxidromeID)
	})

	return Result{
		Suggestions: suggestions,
		RedFlags:    e.redFlagsFor(order, findings, in.Vitals),
	}
}

func (e *Engine) score(ft foldedToxidrome, findings map[string]string, vitals *Vitals) Suggestion {
	matched := make([]string, 0)
	conflicts := make([]string, 0)
	for i, k := range ft.key {
		if _, ok := findings[k]; ok {
			matched = append(matched, ft.tox.KeyFindings[i])
		}
	}
	for i, k := range ft.neg {
		if _, ok := findings[k]; ok {
			conflicts = append(conflicts, ft.tox.NegFindings[i])
		}
	}

	base := float64(len(matched) - len(conflicts))
	bonus := vitalBonus(ft.bias, vitals)
	denom := float64(max(1, len(ft.key)))
	normalized := math.Min(100, math.Max(0, (base+bonus)/denom*100))

	return Suggestion{
		ToxidromeID: ft.tox.ID,
		Score:       int(validation.RoundHalfUp(normalized)),
		Matched:     matched,
		Conflicts:   conflicts,
	}
}

func vitalBonus(rules []entities.VitalRule, vitals *Vitals) float64 {
	if vitals == nil {
		return 0
	}
	var bonus float64
	for _, r := range rules {
		v := vitalValue(vitals, r.Vital)
		if v == nil {
			continue
		}
		switch r.Op {
		case entities.OpAtLeast:
			if *v >= r.Threshold {
				bonus += r.Bonus
			}
		case entities.OpAtMost:
			if *v <= r.Threshold {
				bonus += r.Bonus
			}
		}
	}
	return bonus
}

func vitalValue(v *Vitals, name string) *float64 {
	switch name {
	case entities.VitalHR:
		return v.HR
	case entities.VitalBPSys:
		return v.BPSys
	case entities.VitalTempC:
		return v.TempC
	}
	return nil
}

func (e *Engine) redFlagsFor(order []string, findings map[string]string, vitals *Vitals) []string {
	flags := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(msg string) {
		k := validation.Fold(msg)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		flags = append(flags, msg)
	}

	for _, k := range order {
		if _, ok := e.redKeys[k]; ok {
			add(findings[k])
		}
	}

	if vitals != nil {
		if vitals.TempC != nil && *vitals.TempC >= HyperthermiaThresholdC {
			add(e.flagContaining(hyperthermiaKey, DefaultHyperthermia))
		}
		if vitals.BPSys != nil && *vitals.BPSys <= HypotensionSystolic {
			add(e.flagContaining(hypotensionKey, DefaultHypotension))
		}
	}
	return flags
}

func (e *Engine) flagContaining(substr, fallback string) string {
	for _, f := range e.redFlags {
		if strings.Contains(validation.Fold(f), substr) {
			return f
		}
	}
	return fallback
}
