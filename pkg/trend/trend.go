// Package trend fits a linear trend to a time-ordered sample and extrapolates it
package trend

import (
	"math"

	"github.com/BTBurke/labstat/pkg/stat"
	gonum "gonum.org/v1/gonum/stat"
)

// Direction is the classification of a fitted slope
type Direction string

const (
	Increasing = Direction("increasing")
	Decreasing = Direction("decreasing")
	Stable     = Direction("stable")
)

const (
	// DefaultHorizon is the number of future periods forecast
	DefaultHorizon = 3

	// StableThreshold is the absolute slope below which a trend is stable.  It is not scaled to the
	// magnitude of the data.
	StableThreshold = 0.01

	// minimum sample size for a regression fit
	minFit = 3
)

// Forecast extrapolates the fitted line.  Confidence is r squared of the fit, a proxy rather than a
// predictive interval.
type Forecast struct {
	Values     []float64 `json:"nextValues"`
	Confidence float64   `json:"confidence"`
	Horizon    int       `json:"horizon"`
}

// Model is an ordinary least squares fit of value against observation index
type Model struct {
	Direction   Direction `json:"direction"`
	Slope       float64   `json:"slope"`
	Intercept   float64   `json:"intercept"`
	RSquared    float64   `json:"rSquared"`
	Correlation float64   `json:"correlation"`
	Forecast    Forecast  `json:"forecast"`
}

type options struct {
	horizon int
}

// Option configures Analyze
type Option func(o *options) error

// WithHorizon sets the number of future periods to forecast
func WithHorizon(k int) Option {
	return func(o *options) error {
		if k < 1 {
			return stat.Errorf(stat.ConfigurationError, "trend", "forecast horizon must be at least 1, got %d", k)
		}
		o.horizon = k
		return nil
	}
}

// Analyze fits the trend of a time-ordered sample.  Samples with fewer than three values return a
// stable model through the mean instead of an error.
func Analyze(sample []float64, opts ...Option) (*Model, error) {
	o := &options{horizon: DefaultHorizon}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := stat.Validate("trend", sample); err != nil {
		return nil, err
	}

	n := len(sample)
	if n < minFit || stat.Variance(sample) == 0 {
		return flat(stat.Mean(sample), n, o.horizon), nil
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	intercept, slope := gonum.LinearRegression(x, sample, nil, false)
	r := gonum.Correlation(x, sample, nil)
	r = math.Max(-1.0, math.Min(1.0, r))
	r2 := r * r

	return &Model{
		Direction:   Classify(slope),
		Slope:       slope,
		Intercept:   intercept,
		RSquared:    r2,
		Correlation: r,
		Forecast: Forecast{
			Values:     extrapolate(intercept, slope, n, o.horizon),
			Confidence: r2,
			Horizon:    o.horizon,
		},
	}, nil
}

// Classify returns the direction of a slope
func Classify(slope float64) Direction {
	switch {
	case math.Abs(slope) < StableThreshold:
		return Stable
	case slope > 0:
		return Increasing
	default:
		return Decreasing
	}
}

// flat is the model for samples too short to fit or without any variation to explain
func flat(mean float64, n int, horizon int) *Model {
	return &Model{
		Direction: Stable,
		Intercept: mean,
		Forecast: Forecast{
			Values:  extrapolate(mean, 0, n, horizon),
			Horizon: horizon,
		},
	}
}

func extrapolate(intercept, slope float64, n int, horizon int) []float64 {
	out := make([]float64, horizon)
	for k := 0; k < horizon; k++ {
		out[k] = intercept + slope*float64(n+k)
	}
	return out
}
