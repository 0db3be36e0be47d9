package entities

type Toxidrome struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	KeyFindings []string `json:"keyFindings" yaml:"keyFindings"`
	NegFindings []string `json:"negFindings" yaml:"negFindings"`
	LabsHelpful []string `json:"labsHelpful,omitempty" yaml:"labsHelpful,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Vital names usable in a VitalRule
const (
	VitalHR    = "hr"
	VitalBPSys = "bpSys"
	VitalTempC = "tempC"
)

// Comparison operators usable in a VitalRule
const (
	OpAtLeast = ">="
	OpAtMost  = "<="
)

// VitalRule nudges one toxidrome's score when a vital sign crosses a threshold
type VitalRule struct {
	ToxidromeID string  `json:"toxidromeId" yaml:"toxidromeId"`
	Vital       string  `json:"vital" yaml:"vital"`
	Op          string  `json:"op" yaml:"op"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Bonus       float64 `json:"bonus" yaml:"bonus"`
}

// ToxDb is the toxidrome knowledge base. Toxidromes and RedFlags must both be
// present (possibly empty); VitalRules is optional.
type ToxDb struct {
	Toxidromes []Toxidrome `json:"toxidromes" yaml:"toxidromes"`
	RedFlags   []string    `json:"redFlags" yaml:"redFlags"`
	VitalRules []VitalRule `json:"vitalRules,omitempty" yaml:"vitalRules,omitempty"`
}
