package rng

import (
	"math"
	"math/rand"
)

var _ RNG = &LogNormalRNG{}

// LogNormalRNG generates Log Normal random numbers, useful for right-skewed measurements such as
// particle sizes or fatigue life
type LogNormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *LogNormalRNG) Rand() float64 {
	return math.Exp(r.r.NormFloat64()*r.stdev + r.mean)
}

// NewLogNormalRNG returns a generator whose logarithm has the given mean and stdev.  The same seed always
// produces the same sequence.
func NewLogNormalRNG(mean float64, stdev float64, seed int64) *LogNormalRNG {
	return &LogNormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     rand.New(rand.NewSource(seed)),
	}
}
