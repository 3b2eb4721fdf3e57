package metric

import (
	"fmt"
)

// Series is a bounded window over the most recent observations of one measured parameter.  Once full,
// each new observation replaces the oldest one.
type Series struct {
	name   Name
	count  int
	values []float64
}

type SeriesOption func(s *Series) error

// Values returns a copy of the observations in the window in temporal order from oldest to most recent.
// Slots that were never recorded are not returned.
func (s *Series) Values() []float64 {
	if s.count < len(s.values) {
		out := make([]float64, s.count)
		copy(out, s.values[:s.count])
		return out
	}
	out := make([]float64, 0, len(s.values))
	oldest := s.nextIndex()
	return append(append(out, s.values[oldest:]...), s.values[0:oldest]...)
}

// Record adds a new observation to the series
func (s *Series) Record(p float64) {
	if len(s.values) == 0 {
		return
	}

	s.values[s.nextIndex()] = p
	s.count++
}

// nextIndex returns the index of the oldest observation in the series to be overwritten by new data
func (s *Series) nextIndex() int {
	if len(s.values) == 0 {
		return 0
	}
	return s.count % len(s.values)
}

// Count returns the total number of observations recorded, including those that have left the window
func (s *Series) Count() int {
	return s.count
}

// Dropped returns the number of observations that have left the window
func (s *Series) Dropped() int {
	if s.count <= len(s.values) {
		return 0
	}
	return s.count - len(s.values)
}

// Name returns the name of the series and associated metadata
func (s *Series) Name() string {
	return s.name.String()
}

// NewSeries creates a new series with a capacity of cap
func NewSeries(cap int, opts ...SeriesOption) (*Series, error) {
	if cap <= 0 {
		return nil, fmt.Errorf("series must be initialized with a capacity >= 1")
	}

	s := &Series{
		values: make([]float64, cap),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithName sets the name of the series
func WithName(name string, md map[string]string) SeriesOption {
	return func(s *Series) error {
		if name == "" {
			return fmt.Errorf("series name must be the non-empty string")
		}
		s.name = NewName(name, md)
		return nil
	}
}

// WithValues initializes a series from an existing set of observations.  The number of observations does not
// have to be equal to the capacity.
func WithValues(values []float64) SeriesOption {
	return func(s *Series) error {
		for _, v := range values {
			s.Record(v)
		}
		return nil
	}
}

// Window returns the last n values of sample, or all of them when n <= 0
func Window(sample []float64, n int) []float64 {
	if n <= 0 {
		out := make([]float64, len(sample))
		copy(out, sample)
		return out
	}
	s, _ := NewSeries(n, WithValues(sample))
	return s.Values()
}
