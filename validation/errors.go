// Package validation provides input guards and reference data validation for the calculators.
package validation

import (
	"errors"
	"math"
)

// ErrOutOfRange is the single error kind returned by the calculators.
// Use errors.Is(err, ErrOutOfRange) to detect it.
var ErrOutOfRange = errors.New("out of range")

// OutOfRangeError reports which input was rejected and why
type OutOfRangeError struct {
	Field  string
	Reason string
}

// OutOfRange builds an *OutOfRangeError
func OutOfRange(field, reason string) *OutOfRangeError {
	return &OutOfRangeError{Field: field, Reason: reason}
}

func (e *OutOfRangeError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Is makes every OutOfRangeError match ErrOutOfRange
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// IsOutOfRange reports whether err is (or wraps) an OutOfRangeError
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

// RequireFinite rejects NaN and ±Inf
func RequireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return OutOfRange(field, "must be a finite number")
	}
	return nil
}

// RequireRange checks that v is finite and within [min, max] inclusive.
// Values are never clamped.
func RequireRange(field string, v, min, max float64) error {
	if err := RequireFinite(field, v); err != nil {
		return err
	}
	if v < min || v > max {
		return OutOfRange(field, "out of range")
	}
	return nil
}

// RoundHalfUp rounds to the nearest integer, halves towards +Inf.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// RoundTo rounds v half-up to the given number of decimals
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return RoundHalfUp(v*p) / p
}
