package view

import (
	"math"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/models"
)

// Reason classifies a rejected form submission. Checks run in declaration
// order and the first failure wins.
type Reason string

const (
	NotFinite   Reason = "not_finite"
	EmptyField  Reason = "empty_field"
	NotPositive Reason = "not_positive"
)

// ValidationError is returned for user input that cannot become a workout.
type ValidationError struct {
	Reason Reason
	Kind   models.Kind
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case NotFinite:
		return "All inputs have to be finite numbers!"
	case EmptyField:
		return "Please fill out all inputs!"
	case NotPositive:
		if e.Kind == models.KindCycling {
			return "Distance and duration have to be positive numbers!"
		}
		return "All inputs have to be positive numbers!"
	}
	return "invalid input"
}

// Validate checks form values for a workout of the given kind. extra is the
// cadence for running and the elevation gain for cycling; elevation gain may
// be negative but, like every input, not zero.
func Validate(kind models.Kind, distance, duration, extra float64) error {
	all := []float64{distance, duration, extra}

	for _, v := range all {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Reason: NotFinite, Kind: kind}
		}
	}
	for _, v := range all {
		if v == 0 {
			return &ValidationError{Reason: EmptyField, Kind: kind}
		}
	}

	positive := all
	if kind == models.KindCycling {
		positive = all[:2]
	}
	for _, v := range positive {
		if v <= 0 {
			return &ValidationError{Reason: NotPositive, Kind: kind}
		}
	}
	return nil
}

// ParseInput converts a raw form value to a number. A blank field reads as
// zero and anything unparsable as NaN, so Validate reports them as empty and
// non-finite respectively.
func ParseInput(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
