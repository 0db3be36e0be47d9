// Package fluids computes pediatric maintenance fluid rates and dehydration
// replacement plans. All functions are pure.
package fluids

import (
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Accepted input ranges (inclusive)
const (
	MinWeightKg = 0.5
	MaxWeightKg = 100.0
	MinPercent  = 0.0
	MaxPercent  = 10.0
	MinHours    = 1.0
	MaxHours    = 48.0
)

// 1% dehydration is roughly 10 mL/kg
const mlPerKgPerPercent = 10.0

// FluidPlan is the output of DeficitPlan
type FluidPlan struct {
	DeficitMl int `json:"deficitMl"`
	HourlyMl  int `json:"hourlyMl"`
}

// MaintenanceRate returns the Holliday-Segar (4-2-1) maintenance rate in mL/h,
// rounded to 2 decimals.
func MaintenanceRate(weightKg float64) (float64, error) {
	if err := validation.RequireRange("weightKg", weightKg, MinWeightKg, MaxWeightKg); err != nil {
		return 0, err
	}
	return validation.RoundTo(hollidaySegar(weightKg), 2), nil
}

func hollidaySegar(kg float64) float64 {
	first10 := min(kg, 10) * 4
	second10 := min(max(kg-10, 0), 10) * 2
	rest := max(kg-20, 0) * 1
	return first10 + second10 + rest
}

// DeficitPlan returns the total deficit volume and the hourly rate
// (maintenance + deficit spread over hours).
//
// The hourly rate is computed from the unrounded deficit; both outputs are
// rounded independently at the end.
func DeficitPlan(weightKg, percent, hours float64) (FluidPlan, error) {
	if err := validation.RequireRange("weightKg", weightKg, MinWeightKg, MaxWeightKg); err != nil {
		return FluidPlan{}, err
	}
	if err := validation.RequireRange("percent", percent, MinPercent, MaxPercent); err != nil {
		return FluidPlan{}, err
	}
	if err := validation.RequireRange("hours", hours, MinHours, MaxHours); err != nil {
		return FluidPlan{}, err
	}

	deficit := percent * mlPerKgPerPercent * weightKg
	maintenance, err := MaintenanceRate(weightKg)
	if err != nil {
		return FluidPlan{}, err
	}
	hourly := maintenance + deficit/hours

	return FluidPlan{
		DeficitMl: int(validation.RoundHalfUp(deficit)),
		HourlyMl:  int(validation.RoundHalfUp(hourly)),
	}, nil
}
