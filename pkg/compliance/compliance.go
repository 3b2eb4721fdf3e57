// Package compliance checks a measured value against reference values from standards or
// certificates.
package compliance

import (
	"math"

	"github.com/BTBurke/labstat/pkg/stat"
)

// Range is an acceptable interval around a reference value
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Reference is a value a measurement is expected to match.  Either Tolerance or Range must be set;
// Tolerance wins when both are.
type Reference struct {
	Source     string   `json:"source" yaml:"source"`
	StandardID string   `json:"standardId" yaml:"standardId"`
	Value      float64  `json:"value" yaml:"value"`
	Tolerance  *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Range      *Range   `json:"range,omitempty" yaml:"range,omitempty"`
}

// Result is the outcome of comparing a measurement against one reference
type Result struct {
	StandardID       string  `json:"standardId"`
	Source           string  `json:"source"`
	MeasuredValue    float64 `json:"measuredValue"`
	ReferenceValue   float64 `json:"referenceValue"`
	Tolerance        float64 `json:"tolerance"`
	Deviation        float64 `json:"deviation"`
	DeviationPercent float64 `json:"deviationPercent"`
	Compliant        bool    `json:"compliant"`
}

// Check compares measured against every reference, returning one result per reference in order
func Check(measured float64, refs []Reference) ([]Result, error) {
	if math.IsNaN(measured) || math.IsInf(measured, 0) {
		return nil, stat.Errorf(stat.InvalidInput, "compliance", "measured value is not finite")
	}
	out := make([]Result, 0, len(refs))
	for _, ref := range refs {
		res, err := check(measured, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func check(measured float64, ref Reference) (Result, error) {
	if math.IsNaN(ref.Value) || math.IsInf(ref.Value, 0) {
		return Result{}, stat.Errorf(stat.InvalidInput, "compliance", "reference %s is not finite", ref.StandardID)
	}
	tol, err := tolerance(ref)
	if err != nil {
		return Result{}, err
	}

	deviation := measured - ref.Value
	var pct float64
	switch {
	case ref.Value != 0:
		pct = deviation / ref.Value * 100.0
	case deviation != 0:
		return Result{}, stat.Errorf(stat.InvalidInput, "compliance", "reference %s is zero, deviation percent is undefined", ref.StandardID)
	}

	return Result{
		StandardID:       ref.StandardID,
		Source:           ref.Source,
		MeasuredValue:    measured,
		ReferenceValue:   ref.Value,
		Tolerance:        tol,
		Deviation:        deviation,
		DeviationPercent: pct,
		Compliant:        math.Abs(deviation) <= tol,
	}, nil
}

func tolerance(ref Reference) (float64, error) {
	switch {
	case ref.Tolerance != nil:
		if *ref.Tolerance < 0 || math.IsNaN(*ref.Tolerance) {
			return 0, stat.Errorf(stat.InvalidInput, "compliance", "reference %s has a negative tolerance", ref.StandardID)
		}
		return *ref.Tolerance, nil
	case ref.Range != nil:
		if ref.Range.Max < ref.Range.Min {
			return 0, stat.Errorf(stat.InvalidInput, "compliance", "reference %s has range max below min", ref.StandardID)
		}
		return (ref.Range.Max - ref.Range.Min) / 2.0, nil
	default:
		return 0, stat.Errorf(stat.InvalidInput, "compliance", "reference %s has neither tolerance nor range", ref.StandardID)
	}
}

// Tolerance returns a pointer to t for building references in code
func Tolerance(t float64) *float64 {
	return &t
}
