package rng

import (
	"math/rand"
)

var _ RNG = &NormalRNG{}
var _ RNG = &DriftRNG{}

// NormalRNG generates normally distributed numbers
type NormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *NormalRNG) Rand() float64 {
	return r.r.NormFloat64()*r.stdev + r.mean
}

func NewNormalRNG(mean float64, stdev float64, seed int64) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     rand.New(rand.NewSource(seed)),
	}
}

// DriftRNG adds a linear drift of slope per draw to normally distributed noise, simulating a process
// whose mean wanders over the course of a study
type DriftRNG struct {
	noise *NormalRNG
	slope float64
	step  int
}

func (r *DriftRNG) Rand() float64 {
	v := r.noise.Rand() + r.slope*float64(r.step)
	r.step++
	return v
}

func NewDriftRNG(start float64, slope float64, stdev float64, seed int64) *DriftRNG {
	return &DriftRNG{
		noise: NewNormalRNG(start, stdev, seed),
		slope: slope,
	}
}
