// Package rng generates reproducible measurement series for exercising the analyzers
package rng

// RNG is a random number generator
type RNG interface {
	Rand() float64
}

// Sample draws n values from r
func Sample(r RNG, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.Rand()
	}
	return out
}
