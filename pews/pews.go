// Package pews implements a five-parameter Pediatric Early Warning Score.
package pews

import (
	"fmt"

	"github.com/tlgayhan/pedi-mvp/validation"
)

// Behavior is an AVPU consciousness level
type Behavior string

const (
	BehaviorAlert        Behavior = "alert"
	BehaviorVoice        Behavior = "voice"
	BehaviorPain         Behavior = "pain"
	BehaviorUnresponsive Behavior = "unresponsive"
)

var behaviorScores = map[Behavior]int{
	BehaviorAlert:        0,
	BehaviorVoice:        1,
	BehaviorPain:         2,
	BehaviorUnresponsive: 3,
}

// Tier is the severity band of a total score
type Tier string

const (
	TierLow  Tier = "low"
	TierMed  Tier = "med"
	TierHigh Tier = "high"
)

// Tier thresholds, inclusive lower bounds
const (
	MedThreshold  = 3
	HighThreshold = 5
)

// Physiological input ranges (inclusive)
const (
	MinRespRate  = 10.0
	MaxRespRate  = 120.0
	MinHeartRate = 40.0
	MaxHeartRate = 220.0
)

type Inputs struct {
	RespRate  float64  `json:"respRate"`
	Oxygen    int      `json:"oxygen"`
	HeartRate float64  `json:"heartRate"`
	CapRefill int      `json:"capRefill"`
	Behavior  Behavior `json:"behavior"`
}

type Result struct {
	Total int  `json:"total"`
	Tier  Tier `json:"tier"`
}

// band maps a value to the index of the first upper bound it does not
// exceed, or len(upper) when it exceeds them all.
func band(v float64, upper []float64) int {
	for i, u := range upper {
		if v <= u {
			return i
		}
	}
	return len(upper)
}

var (
	respRateBands  = []float64{30, 45, 60}
	heartRateBands = []float64{100, 140, 170}
)

// RespRateScore scores a respiratory rate (breaths/min)
func RespRateScore(rr float64) (int, error) {
	if err := validation.RequireRange("respRate", rr, MinRespRate, MaxRespRate); err != nil {
		return 0, err
	}
	return band(rr, respRateBands), nil
}

// HeartRateScore scores a heart rate (beats/min)
func HeartRateScore(hr float64) (int, error) {
	if err := validation.RequireRange("heartRate", hr, MinHeartRate, MaxHeartRate); err != nil {
		return 0, err
	}
	return band(hr, heartRateBands), nil
}

// supportScore validates a field that must be exactly 0, 2 or 4; the value is
// its own score.
func supportScore(field string, v int) (int, error) {
	switch v {
	case 0, 2, 4:
		return v, nil
	}
	return 0, validation.OutOfRange(field, fmt.Sprintf("must be one of 0, 2, 4 (got %d)", v))
}

// BehaviorScore scores an AVPU level
func BehaviorScore(b Behavior) (int, error) {
	s, ok := behaviorScores[b]
	if !ok {
		return 0, validation.OutOfRange("behavior", fmt.Sprintf("unknown behavior %q", string(b)))
	}
	return s, nil
}

// ParseBehavior accepts any casing and surrounding whitespace
func ParseBehavior(s string) (Behavior, error) {
	b := Behavior(validation.Fold(s))
	if _, ok := behaviorScores[b]; !ok {
		return "", validation.OutOfRange("behavior", fmt.Sprintf("unknown behavior %q", s))
	}
	return b, nil
}

// Classify maps a total score onto its tier
func Classify(total int) Tier {
	switch {
	case total >= HighThreshold:
		return TierHigh
	case total >= MedThreshold:
		return TierMed
	default:
		return TierLow
	}
}

// Score validates every field and returns the total and its tier. The first
// invalid field, in declaration order, is reported.
func Score(in Inputs) (Result, error) {
	rr, err := RespRateScore(in.RespRate)
	if err != nil {
		return Result{}, err
	}
	ox, err := supportScore("oxygen", in.Oxygen)
	if err != nil {
		return Result{}, err
	}
	hr, err := HeartRateScore(in.HeartRate)
	if err != nil {
		return Result{}, err
	}
	cr, err := supportScore("capRefill", in.CapRefill)
	if err != nil {
		return Result{}, err
	}
	bh, err := BehaviorScore(in.Behavior)
	if err != nil {
		return Result{}, err
	}

	total := rr + ox + hr + cr + bh
	return Result{Total: total, Tier: Classify(total)}, nil
}
