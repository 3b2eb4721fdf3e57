// Package uncertainty evaluates a measurement uncertainty budget following the GUM: a Type A component
// from the scatter of repeated measurements combined with Type B components from instrument and
// environmental sources.
package uncertainty

import (
	"math"

	"github.com/BTBurke/labstat/pkg/stat"
)

// Distribution is the assumed probability distribution of a component
type Distribution string

const (
	Normal      = Distribution("normal")
	Rectangular = Distribution("rectangular")
	Triangular  = Distribution("triangular")
	UShaped     = Distribution("u-shaped")
)

// Divisor converts a half-width of the distribution to a standard uncertainty
func (d Distribution) Divisor() float64 {
	switch d {
	case Rectangular:
		return math.Sqrt(3)
	case Triangular:
		return math.Sqrt(6)
	case UShaped:
		return math.Sqrt(2)
	default:
		return 1.0
	}
}

const (
	// DefaultInstrument is the instrument uncertainty used when none is configured
	DefaultInstrument = 0.01
	// DefaultEnvironmental is the environmental uncertainty used when none is configured
	DefaultEnvironmental = 0.005
	// CoverageFactor k gives approximately 95% coverage under normality
	CoverageFactor = 2.0
	// CoverageLevel is the confidence level in percent for k = 2
	CoverageLevel = 95.45
)

// TypeA is the statistically evaluated component
type TypeA struct {
	StandardUncertainty float64      `json:"standardUncertainty"`
	DegreesOfFreedom    int          `json:"degreesOfFreedom"`
	Distribution        Distribution `json:"distribution"`
}

// Component is one Type B source.  Divisor is recorded for every component; it only changes the combined
// value when divisors are applied.
type Component struct {
	Source       string       `json:"source"`
	Value        float64      `json:"value"`
	Distribution Distribution `json:"distribution"`
	Divisor      float64      `json:"divisor"`
}

// TypeB holds the non-statistical components and their root sum of squares
type TypeB struct {
	Components []Component `json:"components"`
	Combined   float64     `json:"combinedUncertainty"`
}

// Expanded is the combined standard uncertainty multiplied by the coverage factor
type Expanded struct {
	Value           float64 `json:"value"`
	CoverageFactor  float64 `json:"coverageFactor"`
	ConfidenceLevel float64 `json:"confidenceLevel"`
}

// Entry is the share of one component in the combined variance
type Entry struct {
	Component           string  `json:"component"`
	Value               float64 `json:"value"`
	ContributionPercent float64 `json:"contributionPercent"`
}

// Model is a complete uncertainty budget
type Model struct {
	TypeA           TypeA    `json:"typeA"`
	TypeB           TypeB    `json:"typeB"`
	Combined        float64  `json:"combinedStandardUncertainty"`
	Expanded        Expanded `json:"expandedUncertainty"`
	Budget          []Entry  `json:"budget"`
	DivisorsApplied bool     `json:"divisorsApplied"`
}

type options struct {
	instrument    float64
	environmental float64
	extra         []Component
	applyDivisors bool
}

// Option configures Analyze
type Option func(o *options) error

// WithInstrument sets the instrument uncertainty, treated as rectangular
func WithInstrument(u float64) Option {
	return func(o *options) error {
		if err := nonNegative("instrument", u); err != nil {
			return err
		}
		o.instrument = u
		return nil
	}
}

// WithEnvironmental sets the environmental uncertainty, treated as normal
func WithEnvironmental(u float64) Option {
	return func(o *options) error {
		if err := nonNegative("environmental", u); err != nil {
			return err
		}
		o.environmental = u
		return nil
	}
}

// WithComponent adds a further Type B component, e.g. a calibration certificate or operator effect
func WithComponent(source string, u float64, d Distribution) Option {
	return func(o *options) error {
		if source == "" {
			return stat.Errorf(stat.ConfigurationError, "uncertainty", "component source must not be empty")
		}
		if err := nonNegative(source, u); err != nil {
			return err
		}
		o.extra = append(o.extra, Component{Source: source, Value: u, Distribution: d, Divisor: d.Divisor()})
		return nil
	}
}

// WithDivisorsApplied divides every Type B value by its distribution divisor before combining.  Without
// it the values are taken to be standard uncertainties already.
func WithDivisorsApplied() Option {
	return func(o *options) error {
		o.applyDivisors = true
		return nil
	}
}

// Analyze computes the uncertainty budget for repeated measurements in sample.  At least two values are
// required for the Type A evaluation.
func Analyze(sample []float64, opts ...Option) (*Model, error) {
	o := &options{instrument: DefaultInstrument, environmental: DefaultEnvironmental}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := stat.Validate("uncertainty", sample); err != nil {
		return nil, err
	}
	n := len(sample)
	if n < 2 {
		return nil, stat.Errorf(stat.InsufficientData, "uncertainty", "need at least 2 values for a type A evaluation, got %d", n)
	}

	typeA := TypeA{
		StandardUncertainty: stat.StdDev(sample) / math.Sqrt(float64(n)),
		DegreesOfFreedom:    n - 1,
		Distribution:        Normal,
	}

	components := append([]Component{
		{Source: "instrument", Value: o.instrument, Distribution: Rectangular, Divisor: Rectangular.Divisor()},
		{Source: "environmental", Value: o.environmental, Distribution: Normal, Divisor: Normal.Divisor()},
	}, o.extra...)

	standard := make([]float64, len(components))
	sumSq := 0.0
	for i, c := range components {
		standard[i] = c.Value
		if o.applyDivisors {
			standard[i] = c.Value / c.Divisor
		}
		sumSq += standard[i] * standard[i]
	}
	typeB := TypeB{Components: components, Combined: math.Sqrt(sumSq)}

	uc := math.Sqrt(typeA.StandardUncertainty*typeA.StandardUncertainty + typeB.Combined*typeB.Combined)

	budget := make([]Entry, 0, len(components)+1)
	budget = append(budget, entry("type A", typeA.StandardUncertainty, uc))
	for i, c := range components {
		budget = append(budget, entry(c.Source, standard[i], uc))
	}

	return &Model{
		TypeA:    typeA,
		TypeB:    typeB,
		Combined: uc,
		Expanded: Expanded{
			Value:           CoverageFactor * uc,
			CoverageFactor:  CoverageFactor,
			ConfidenceLevel: CoverageLevel,
		},
		Budget:          budget,
		DivisorsApplied: o.applyDivisors,
	}, nil
}

func entry(name string, u float64, uc float64) Entry {
	pct := 0.0
	if uc > 0 {
		pct = (u * u) / (uc * uc) * 100.0
	}
	return Entry{Component: name, Value: u, ContributionPercent: pct}
}

func nonNegative(name string, u float64) error {
	if u < 0 || math.IsNaN(u) || math.IsInf(u, 0) {
		return stat.Errorf(stat.ConfigurationError, "uncertainty", "%s uncertainty must be a finite non-negative value, got %v", name, u)
	}
	return nil
}
