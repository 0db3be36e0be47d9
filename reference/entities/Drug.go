package entities

// Guardrails is the weight window a drug may be dosed for
type Guardrails struct {
	MinKg float64 `json:"minKg" yaml:"minKg"`
	MaxKg float64 `json:"maxKg" yaml:"maxKg"`
}

// DrugRoute is one administration route of a drug with its own formula and ceilings
type DrugRoute struct {
	Route                 string    `json:"route" yaml:"route"`
	PerKgMg               float64   `json:"perKgMg" yaml:"perKgMg"`
	MaxSingleMg           float64   `json:"maxSingleMg" yaml:"maxSingleMg"`
	MaxDailyMgPerKg       float64   `json:"maxDailyMgPerKg" yaml:"maxDailyMgPerKg"`
	MaxDailyMgAbs         *float64  `json:"maxDailyMgAbs,omitempty" yaml:"maxDailyMgAbs,omitempty"`
	IntervalH             float64   `json:"intervalH" yaml:"intervalH"`
	ConcentrationsMgPerMl []float64 `json:"concentrationsMgPerMl" yaml:"concentrationsMgPerMl"`
}

type Drug struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Routes     []DrugRoute `json:"routes" yaml:"routes"`
	Guardrails Guardrails  `json:"guardrails" yaml:"guardrails"`
	Notes      string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DrugsDb is the ordered formulary
type DrugsDb []Drug
