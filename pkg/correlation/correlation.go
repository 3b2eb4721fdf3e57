// Package correlation computes pairwise Pearson correlation between measured parameters with
// significance tests and Fisher confidence intervals.
package correlation

import (
	"context"
	"math"
	"sort"

	"github.com/BTBurke/labstat/pkg/stat"
	gonum "gonum.org/v1/gonum/stat"
	"golang.org/x/sync/errgroup"
)

const (
	// Alpha is the significance level for correlation tests
	Alpha = 0.05

	// DefaultConcurrency bounds the number of pairs analyzed at once
	DefaultConcurrency = 4

	// z value of the 95% Fisher interval
	fisherZ = 1.96

	minPairs    = 3
	minInterval = 4
)

// Edge is the correlation between two parameters.  ConfidenceInterval is nil when fewer than four paired
// observations are available.  Truncated is set when the longer series was cut to the length of the
// shorter one.
type Edge struct {
	A                  string         `json:"paramA"`
	B                  string         `json:"paramB"`
	Correlation        float64        `json:"correlation"`
	PValue             float64        `json:"pValue"`
	Significant        bool           `json:"significant"`
	SampleSize         int            `json:"sampleSize"`
	Truncated          bool           `json:"truncated"`
	ConfidenceInterval *stat.Interval `json:"confidenceInterval,omitempty"`
}

// Skipped is a pair that could not be correlated
type Skipped struct {
	A      string    `json:"paramA"`
	B      string    `json:"paramB"`
	Kind   stat.Kind `json:"kind"`
	Reason string    `json:"reason"`
}

// Result holds one edge per unordered pair of parameters that could be correlated
type Result struct {
	Edges   []Edge    `json:"edges"`
	Skipped []Skipped `json:"skipped"`
}

type options struct {
	dist        stat.Distribution
	concurrency int
}

// Option configures Pearson and Matrix
type Option func(o *options) error

// WithDistribution sets the distribution used for p-values.  Defaults to stat.NewLookupTable().
func WithDistribution(d stat.Distribution) Option {
	return func(o *options) error {
		if d == nil {
			return stat.Errorf(stat.ConfigurationError, "correlation", "distribution must not be nil")
		}
		o.dist = d
		return nil
	}
}

// WithConcurrency bounds the number of pairs analyzed in parallel by Matrix
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return stat.Errorf(stat.ConfigurationError, "correlation", "concurrency must be at least 1, got %d", n)
		}
		o.concurrency = n
		return nil
	}
}

func newOptions(opts []Option) (*options, error) {
	o := &options{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.dist == nil {
		o.dist = stat.NewLookupTable()
	}
	return o, nil
}

// Pearson correlates series a and b.  Series of different length are truncated to the shorter one.
func Pearson(nameA string, a []float64, nameB string, b []float64, opts ...Option) (*Edge, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return pearson(nameA, a, nameB, b, o.dist)
}

func pearson(nameA string, a []float64, nameB string, b []float64, dist stat.Distribution) (*Edge, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minPairs {
		return nil, stat.Errorf(stat.InsufficientData, "correlation", "need at least %d paired values for %s and %s, got %d", minPairs, nameA, nameB, n)
	}
	x, y := a[:n], b[:n]
	if err := stat.Validate("correlation", x); err != nil {
		return nil, err
	}
	if err := stat.Validate("correlation", y); err != nil {
		return nil, err
	}
	if stat.Variance(x) == 0 || stat.Variance(y) == 0 {
		return nil, stat.Errorf(stat.InvalidInput, "correlation", "%s or %s has zero variance", nameA, nameB)
	}

	r := math.Max(-1.0, math.Min(1.0, gonum.Correlation(x, y, nil)))
	p := pValue(r, n, dist)
	edge := &Edge{
		A:           nameA,
		B:           nameB,
		Correlation: r,
		PValue:      p,
		Significant: p < Alpha,
		SampleSize:  n,
		Truncated:   len(a) != len(b),
	}
	if n >= minInterval {
		edge.ConfidenceInterval = fisher(r, n)
	}
	return edge, nil
}

// pValue is the two tailed p-value of t = r*sqrt((n-2)/(1-r^2))
func pValue(r float64, n int, dist stat.Distribution) float64 {
	if math.Abs(r) >= 1.0 {
		return 0.0
	}
	t := r * math.Sqrt(float64(n-2)/(1.0-r*r))
	return dist.TTwoTailed(t, n-2)
}

// fisher returns the 95% interval of r from the Fisher z transform
func fisher(r float64, n int) *stat.Interval {
	z := math.Atanh(r)
	se := 1.0 / math.Sqrt(float64(n-3))
	return &stat.Interval{
		Lower: math.Tanh(z - fisherZ*se),
		Upper: math.Tanh(z + fisherZ*se),
		Level: 95,
	}
}

type pair struct {
	a, b string
}

// Matrix correlates every unordered pair of samples.  Pairs are ordered by name and analyzed on a
// bounded pool of goroutines; pairs that fail are reported in Skipped rather than aborting the matrix.
func Matrix(ctx context.Context, samples map[string][]float64, opts ...Option) (*Result, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return nil, stat.Errorf(stat.InsufficientData, "correlation", "need at least 2 parameters, got %d", len(samples))
	}

	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]pair, 0, len(names)*(len(names)-1)/2)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pairs = append(pairs, pair{a: names[i], b: names[j]})
		}
	}

	edges := make([]*Edge, len(pairs))
	errs := make([]error, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			edges[i], errs[i] = pearson(p.a, samples[p.a], p.b, samples[p.b], o.dist)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Edges: make([]Edge, 0, len(pairs)), Skipped: make([]Skipped, 0)}
	for i, p := range pairs {
		if errs[i] != nil {
			res.Skipped = append(res.Skipped, Skipped{A: p.a, B: p.b, Kind: stat.KindOf(errs[i]), Reason: errs[i].Error()})
			continue
		}
		res.Edges = append(res.Edges, *edges[i])
	}
	return res, nil
}

// Lookup returns the edge between a and b in either order
func (r *Result) Lookup(a, b string) (Edge, bool) {
	for _, e := range r.Edges {
		if (e.A == a && e.B == b) || (e.A == b && e.B == a) {
			return e, true
		}
	}
	return Edge{}, false
}
