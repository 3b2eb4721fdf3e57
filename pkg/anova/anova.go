// Package anova performs a one-way analysis of variance across independent groups, for example the
// results of the same test performed by different operators.
package anova

import (
	"sort"

	"github.com/BTBurke/labstat/pkg/stat"
)

// Alpha is the significance level of the F test
const Alpha = 0.05

// DegreesOfFreedom of the between, within and total variation
type DegreesOfFreedom struct {
	Between int `json:"between"`
	Within  int `json:"within"`
	Total   int `json:"total"`
}

// SumOfSquares of the between, within and total variation
type SumOfSquares struct {
	Between float64 `json:"between"`
	Within  float64 `json:"within"`
	Total   float64 `json:"total"`
}

// MeanSquares are the sums of squares divided by their degrees of freedom
type MeanSquares struct {
	Between float64 `json:"between"`
	Within  float64 `json:"within"`
}

// Group summarizes one group
type Group struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Result of a one-way ANOVA.  Significant is true when F exceeds the critical value.
type Result struct {
	FStatistic       float64          `json:"fStatistic"`
	PValue           float64          `json:"pValue"`
	CriticalValue    float64          `json:"criticalValue"`
	DegreesOfFreedom DegreesOfFreedom `json:"degreesOfFreedom"`
	SumOfSquares     SumOfSquares     `json:"sumOfSquares"`
	MeanSquares      MeanSquares      `json:"meanSquares"`
	GrandMean        float64          `json:"grandMean"`
	Groups           []Group          `json:"groups"`
	Significant      bool             `json:"significant"`
}

type options struct {
	dist stat.Distribution
}

// Option configures OneWay
type Option func(o *options) error

// WithDistribution sets the source of F critical values and p-values.  Defaults to stat.NewLookupTable().
func WithDistribution(d stat.Distribution) Option {
	return func(o *options) error {
		if d == nil {
			return stat.Errorf(stat.ConfigurationError, "anova", "distribution must not be nil")
		}
		o.dist = d
		return nil
	}
}

// OneWay tests whether the group means differ more than the scatter within the groups explains
func OneWay(groups map[string][]float64, opts ...Option) (*Result, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.dist == nil {
		o.dist = stat.NewLookupTable()
	}
	k := len(groups)
	if k < 2 {
		return nil, stat.Errorf(stat.InsufficientGroups, "anova", "need at least 2 groups, got %d", k)
	}

	names := make([]string, 0, k)
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	n := 0
	sum := 0.0
	summary := make([]Group, 0, k)
	for _, name := range names {
		values := groups[name]
		if err := stat.Validate("anova", values); err != nil {
			return nil, stat.Errorf(stat.InvalidInput, "anova", "group %s: %v", name, err)
		}
		n += len(values)
		for _, v := range values {
			sum += v
		}
		summary = append(summary, Group{Name: name, Count: len(values), Mean: stat.Mean(values), StdDev: stat.StdDev(values)})
	}
	dfWithin := n - k
	if dfWithin < 1 {
		return nil, stat.Errorf(stat.InsufficientData, "anova", "need more observations than groups, got %d observations in %d groups", n, k)
	}
	grand := sum / float64(n)

	var ssb, ssw float64
	for i, name := range names {
		g := summary[i]
		ssb += float64(g.Count) * (g.Mean - grand) * (g.Mean - grand)
		for _, v := range groups[name] {
			ssw += (v - g.Mean) * (v - g.Mean)
		}
	}
	dfBetween := k - 1
	msb := ssb / float64(dfBetween)
	msw := ssw / float64(dfWithin)

	var f, p float64
	switch {
	case msw == 0 && msb == 0:
		f, p = 0.0, 1.0
	case msw == 0:
		return nil, stat.Errorf(stat.InvalidInput, "anova", "groups have no within-group variation, F is undefined")
	default:
		f = msb / msw
		p = o.dist.FUpperTail(f, dfBetween, dfWithin)
	}
	critical := o.dist.FCritical(dfBetween, dfWithin, Alpha)

	return &Result{
		FStatistic:    f,
		PValue:        p,
		CriticalValue: critical,
		DegreesOfFreedom: DegreesOfFreedom{
			Between: dfBetween,
			Within:  dfWithin,
			Total:   n - 1,
		},
		SumOfSquares: SumOfSquares{
			Between: ssb,
			Within:  ssw,
			Total:   ssb + ssw,
		},
		MeanSquares: MeanSquares{Between: msb, Within: msw},
		GrandMean:   grand,
		Groups:      summary,
		Significant: f > critical,
	}, nil
}

// GroupBy splits values into groups by the label of each row, e.g. the operator who performed each test
func GroupBy(values []float64, labels []string) (map[string][]float64, error) {
	if len(values) != len(labels) {
		return nil, stat.Errorf(stat.InvalidInput, "anova", "%d values but %d group labels", len(values), len(labels))
	}
	out := make(map[string][]float64)
	for i, v := range values {
		if labels[i] == "" {
			return nil, stat.Errorf(stat.InvalidInput, "anova", "row %d has no group label", i)
		}
		out[labels[i]] = append(out[labels[i]], v)
	}
	return out, nil
}
