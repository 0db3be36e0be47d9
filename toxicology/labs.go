package toxicology

import "github.com/tlgayhan/pedi-mvp/validation"

// LactateLevel classifies a serum lactate
type LactateLevel string

const (
	LactateNormal LactateLevel = "normal"
	LactateHigh   LactateLevel = "high"
)

// LactateHighMmolL is the lower bound of an elevated lactate
const LactateHighMmolL = 2.0

// Conversion divisors from mg/dL to mOsm/kg
const (
	bunDivisor     = 2.8
	glucoseDivisor = 18.0
	ethanolDivisor = 3.7
)

// AnionGap returns Na - (Cl + HCO3), rounded to 1 decimal
func AnionGap(na, cl, hco3 float64) float64 {
	return validation.RoundTo(na-(cl+hco3), 1)
}

// CalculatedOsmolality returns 2Na + BUN/2.8 + glucose/18, plus ethanol/3.7
// when ethanol is positive. BUN, glucose and ethanol are in mg/dL.
func CalculatedOsmolality(na, bun, glucose, ethanol float64) float64 {
	osm := 2*na + bun/bunDivisor + glucose/glucoseDivisor
	if ethanol > 0 {
		osm += ethanol / ethanolDivisor
	}
	return osm
}

// OsmolalGap returns measured minus calculated osmolality, rounded to 1 decimal
func OsmolalGap(measured, na, bun, glucose, ethanol float64) float64 {
	return validation.RoundTo(measured-CalculatedOsmolality(na, bun, glucose, ethanol), 1)
}

func LactateFlag(lactate float64) LactateLevel {
	if lactate >= LactateHighMmolL {
		return LactateHigh
	}
	return LactateNormal
}
