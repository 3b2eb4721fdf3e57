// Package spc builds individuals control charts and process capability indices for a single
// homogeneous process (no rational subgrouping).
package spc

import (
	"math"

	"github.com/BTBurke/labstat/pkg/stat"
)

const (
	// DefaultSigma is the distance of the control limits from the center line in standard deviations
	DefaultSigma = 3.0

	// MaxIndex bounds every capability index.  A process with no measurable spread inside its limits
	// reports MaxIndex instead of an infinite value.
	MaxIndex = 10.0
)

// Limits are the lower and upper specification limits used for capability.  Supplied is false when the
// control limits were reused as specification limits.
type Limits struct {
	Lower    float64 `json:"lower" yaml:"lower"`
	Upper    float64 `json:"upper" yaml:"upper"`
	Supplied bool    `json:"supplied" yaml:"-"`
}

// ControlChart is an individuals chart with capability indices
type ControlChart struct {
	CenterLine   float64    `json:"centerLine"`
	UCL          float64    `json:"ucl"`
	LCL          float64    `json:"lcl"`
	Sigma        float64    `json:"sigma"`
	OutOfControl []int      `json:"outOfControlIndices"`
	Cp           float64    `json:"cp"`
	Cpk          float64    `json:"cpk"`
	Pp           float64    `json:"pp"`
	Ppk          float64    `json:"ppk"`
	SpecLimits   Limits     `json:"specLimits"`
	EWMA         *EWMAChart `json:"ewma,omitempty"`
}

type options struct {
	sigma  float64
	spec   *Limits
	lambda float64
}

// Option configures a control chart
type Option func(o *options) error

// WithSigma sets the width of the control limits in standard deviations
func WithSigma(l float64) Option {
	return func(o *options) error {
		if l <= 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			return stat.Errorf(stat.ConfigurationError, "control chart", "control limit sigma must be positive, got %v", l)
		}
		o.sigma = l
		return nil
	}
}

// WithSpecLimits supplies specification limits for the capability indices.  Without them the control
// limits are used as specification limits, which makes Cp equal to sigma/3 for every process.
func WithSpecLimits(lower, upper float64) Option {
	return func(o *options) error {
		if !(lower < upper) {
			return stat.Errorf(stat.ConfigurationError, "control chart", "lower specification limit %v must be below upper %v", lower, upper)
		}
		o.spec = &Limits{Lower: lower, Upper: upper, Supplied: true}
		return nil
	}
}

// WithEWMA adds an exponentially weighted moving average chart with smoothing constant lambda in (0, 1]
func WithEWMA(lambda float64) Option {
	return func(o *options) error {
		if lambda <= 0 || lambda > 1 {
			return stat.Errorf(stat.ConfigurationError, "control chart", "ewma lambda must be in (0, 1], got %v", lambda)
		}
		o.lambda = lambda
		return nil
	}
}

// Analyze builds the control chart for sample.  At least two values are required.
func Analyze(sample []float64, opts ...Option) (*ControlChart, error) {
	o := &options{sigma: DefaultSigma}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := stat.Validate("control chart", sample); err != nil {
		return nil, err
	}
	if len(sample) < 2 {
		return nil, stat.Errorf(stat.InsufficientData, "control chart", "need at least 2 values, got %d", len(sample))
	}

	mean := stat.Mean(sample)
	sd := stat.StdDev(sample)
	ucl := mean + o.sigma*sd
	lcl := mean - o.sigma*sd

	spec := Limits{Lower: lcl, Upper: ucl}
	if o.spec != nil {
		spec = *o.spec
	}
	cp, cpk := capability(mean, sd, spec, o.sigma)

	chart := &ControlChart{
		CenterLine:   mean,
		UCL:          ucl,
		LCL:          lcl,
		Sigma:        sd,
		OutOfControl: outside(sample, lcl, ucl),
		Cp:           cp,
		Cpk:          cpk,
		// no short/long term sigma distinction for individuals data
		Pp:         cp,
		Ppk:        cpk,
		SpecLimits: spec,
	}
	if o.lambda > 0 {
		chart.EWMA = ewma(sample, mean, sd, o.lambda, o.sigma)
	}
	return chart, nil
}

// capability returns Cp and Cpk for the limits.  With zero spread the indices take their limiting values:
// L/3 when the limits are the control limits themselves, otherwise MaxIndex (or 0 for Cpk when the mean
// lies outside the limits).
func capability(mean, sd float64, spec Limits, l float64) (float64, float64) {
	if sd == 0 {
		switch {
		case !spec.Supplied:
			return round(l / 3.0), round(l / 3.0)
		case mean >= spec.Lower && mean <= spec.Upper:
			return MaxIndex, MaxIndex
		default:
			return MaxIndex, 0.0
		}
	}
	cp := (spec.Upper - spec.Lower) / (6.0 * sd)
	cpk := math.Min((spec.Upper-mean)/(3.0*sd), (mean-spec.Lower)/(3.0*sd))
	return round(math.Min(cp, MaxIndex)), round(math.Max(-MaxIndex, math.Min(cpk, MaxIndex)))
}

// outside returns the indices of values strictly above upper or below lower
func outside(values []float64, lower, upper float64) []int {
	out := make([]int, 0)
	for i, v := range values {
		if v > upper || v < lower {
			out = append(out, i)
		}
	}
	return out
}

// round to 6 decimals
func round(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
