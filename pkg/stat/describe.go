// Package stat computes descriptive statistics for a single measurement sample and provides the
// t and F distribution values used by the other analyzers.
package stat

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	gonum "gonum.org/v1/gonum/stat"
)

// DefaultConfidenceLevel is the confidence level, in percent, used for confidence intervals
const DefaultConfidenceLevel = 95.0

// Quartiles are the 25th, 50th and 75th percentiles of a sample
type Quartiles struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// Interval is a two sided confidence interval
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Summary is a snapshot of the descriptive statistics of one sample
type Summary struct {
	Count              int       `json:"count"`
	Mean               float64   `json:"mean"`
	Median             float64   `json:"median"`
	Mode               []float64 `json:"mode"`
	StdDev             float64   `json:"stdDev"`
	Variance           float64   `json:"variance"`
	Min                float64   `json:"min"`
	Max                float64   `json:"max"`
	Quartiles          Quartiles `json:"quartiles"`
	IQR                float64   `json:"iqr"`
	Skewness           float64   `json:"skewness"`
	Kurtosis           float64   `json:"kurtosis"`
	ConfidenceInterval Interval  `json:"confidenceInterval"`
	Outliers           []float64 `json:"outliers"`
}

type options struct {
	dist  Distribution
	level float64
}

// Option configures Describe
type Option func(o *options) error

// WithDistribution sets the source of t values for the confidence interval.  Defaults to NewLookupTable().
func WithDistribution(d Distribution) Option {
	return func(o *options) error {
		if d == nil {
			return Errorf(ConfigurationError, "describe", "distribution must not be nil")
		}
		o.dist = d
		return nil
	}
}

// WithConfidenceLevel sets the confidence level in percent, e.g. 95
func WithConfidenceLevel(level float64) Option {
	return func(o *options) error {
		if level <= 0 || level >= 100 || math.IsNaN(level) {
			return Errorf(ConfigurationError, "describe", "confidence level must be between 0 and 100, got %v", level)
		}
		o.level = level
		return nil
	}
}

// Describe returns the descriptive statistics of sample.  The sample is not modified.
func Describe(sample []float64, opts ...Option) (*Summary, error) {
	o := &options{level: DefaultConfidenceLevel}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.dist == nil {
		o.dist = NewLookupTable()
	}
	if err := Validate("describe", sample); err != nil {
		return nil, err
	}

	n := len(sample)
	sorted := make([]float64, n)
	copy(sorted, sample)
	sort.Float64s(sorted)

	mean := Mean(sample)
	variance := Variance(sample)
	sd := math.Sqrt(variance)

	median, err := stats.Median(sorted)
	if err != nil {
		return nil, Errorf(InvalidInput, "describe", "median: %v", err)
	}
	min, _ := stats.Min(sorted)
	max, _ := stats.Max(sorted)

	q := Quartiles{
		Q1: Percentile(sorted, 25),
		Q2: Percentile(sorted, 50),
		Q3: Percentile(sorted, 75),
	}
	iqr := q.Q3 - q.Q1

	alpha := 1.0 - o.level/100.0
	margin := 0.0
	if n > 1 {
		margin = o.dist.TCritical(n-1, alpha) * sd / math.Sqrt(float64(n))
	}
	skew, kurt := moments(sample, mean, sd)

	return &Summary{
		Count:              n,
		Mean:               mean,
		Median:             median,
		Mode:               modes(sorted),
		StdDev:             sd,
		Variance:           variance,
		Min:                min,
		Max:                max,
		Quartiles:          q,
		IQR:                iqr,
		Skewness:           skew,
		Kurtosis:           kurt,
		ConfidenceInterval: Interval{Lower: mean - margin, Upper: mean + margin, Level: o.level},
		Outliers:           Outliers(sample, q.Q1, q.Q3),
	}, nil
}

// Validate returns an InvalidInput error if sample is empty or contains a NaN or infinite value
func Validate(op string, sample []float64) error {
	if len(sample) == 0 {
		return Errorf(InvalidInput, op, "sample is empty")
	}
	for i, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Errorf(InvalidInput, op, "value at index %d is not finite", i)
		}
	}
	return nil
}

// Mean returns the arithmetic mean, or 0 for an empty sample
func Mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0.0
	}
	return gonum.Mean(sample, nil)
}

// Variance returns the sample (n-1) variance.  Samples with fewer than two values have zero variance.
func Variance(sample []float64) float64 {
	if len(sample) < 2 {
		return 0.0
	}
	return gonum.Variance(sample, nil)
}

// StdDev returns the sample standard deviation
func StdDev(sample []float64) float64 {
	return math.Sqrt(Variance(sample))
}

// Percentile returns the p-th percentile (0-100) of an ascending sample by linear interpolation between
// the elements at floor and ceil of p/100*(n-1)
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}
	idx := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Outliers returns, in sample order, the values outside the Tukey fences q1-1.5*iqr and q3+1.5*iqr
func Outliers(sample []float64, q1, q3 float64) []float64 {
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr
	out := make([]float64, 0)
	for _, v := range sample {
		if v < lower || v > upper {
			out = append(out, v)
		}
	}
	return out
}

// modes returns every value tied for the highest frequency in ascending order
func modes(sorted []float64) []float64 {
	out := make([]float64, 0, 1)
	best := 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		switch count := j - i; {
		case count > best:
			best = count
			out = append(out[:0], sorted[i])
		case count == best:
			out = append(out, sorted[i])
		}
		i = j
	}
	return out
}

// moments returns skewness and excess kurtosis using the sample standard deviation.  Both are zero
// when the sample has no spread.
func moments(sample []float64, mean, sd float64) (float64, float64) {
	if sd == 0 {
		return 0.0, 0.0
	}
	var m3, m4 float64
	for _, v := range sample {
		z := (v - mean) / sd
		m3 += z * z * z
		m4 += z * z * z * z
	}
	n := float64(len(sample))
	return m3 / n, m4/n - 3.0
}
