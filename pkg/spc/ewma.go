package spc

import "math"

// EWMAChart tracks the exponentially weighted moving average of the sample.  It reacts to small sustained
// shifts in the mean that an individuals chart only catches late.
type EWMAChart struct {
	Lambda       float64   `json:"lambda"`
	Values       []float64 `json:"values"`
	UCL          float64   `json:"ucl"`
	LCL          float64   `json:"lcl"`
	OutOfControl []int     `json:"outOfControlIndices"`
}

func ewma(sample []float64, mean, sd, lambda, l float64) *EWMAChart {
	values := make([]float64, len(sample))
	current := mean
	for i, o := range sample {
		current = next(current, o, lambda)
		values[i] = current
	}
	ucl := limit(mean, sd*sd, lambda, l, 1)
	lcl := limit(mean, sd*sd, lambda, l, -1)
	return &EWMAChart{
		Lambda:       lambda,
		Values:       values,
		UCL:          ucl,
		LCL:          lcl,
		OutOfControl: outside(values, lcl, ucl),
	}
}

// next returns the updated value of the statistic after observing o
func next(current, o, lambda float64) float64 {
	return (lambda * o) + ((1.0 - lambda) * current)
}

// limit will determine the asymptotic UCL or LCL limit (UCL => direction +1, LCL => direction -1)
func limit(mean float64, variance float64, lambda float64, l float64, direction int) float64 {
	estimatorVariance := (lambda / (2.0 - lambda)) * variance

	switch {
	case direction >= 0:
		return mean + (l * math.Sqrt(estimatorVariance))
	default:
		return mean - (l * math.Sqrt(estimatorVariance))
	}
}
