package anova

import (
	"errors"
	"testing"

	"github.com/BTBurke/labstat/pkg/rng"
	"github.com/BTBurke/labstat/pkg/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeparatedGroups(t *testing.T) {
	res, err := OneWay(map[string][]float64{
		"day":   {1, 2, 3},
		"night": {10, 11, 12},
	})
	require.NoError(t, err)

	assert.Equal(t, DegreesOfFreedom{Between: 1, Within: 4, Total: 5}, res.DegreesOfFreedom)
	assert.InDelta(t, 121.5, res.SumOfSquares.Between, 1e-9)
	assert.InDelta(t, 4.0, res.SumOfSquares.Within, 1e-9)
	assert.InDelta(t, 125.5, res.SumOfSquares.Total, 1e-9)
	assert.InDelta(t, 121.5, res.MeanSquares.Between, 1e-9)
	assert.InDelta(t, 1.0, res.MeanSquares.Within, 1e-9)
	assert.InDelta(t, 121.5, res.FStatistic, 1e-9)
	assert.InDelta(t, 6.5, res.GrandMean, 1e-12)
	assert.Equal(t, 7.71, res.CriticalValue)
	assert.True(t, res.Significant)
	assert.True(t, res.PValue < 0.01, "p = %v", res.PValue)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, Group{Name: "day", Count: 3, Mean: 2, StdDev: 1}, res.Groups[0])
	assert.Equal(t, "night", res.Groups[1].Name)
	assert.Equal(t, 11.0, res.Groups[1].Mean)
}

func TestOperators(t *testing.T) {
	groups := map[string][]float64{
		"alice": {10, 11, 12, 11},
		"bob":   {12, 13, 14, 13},
		"carol": {11, 12, 13, 12},
	}
	tt := []struct {
		name string
		dist stat.Distribution
		p    float64
		tol  float64
	}{
		{name: "lookup", dist: stat.NewLookupTable(), p: 0.022076, tol: 1e-5},
		{name: "exact", dist: stat.Exact{}, p: 0.022085, tol: 1e-5},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			res, err := OneWay(groups, WithDistribution(tc.dist))
			require.NoError(t, err)
			assert.InDelta(t, 8.0, res.SumOfSquares.Between, 1e-9)
			assert.InDelta(t, 6.0, res.SumOfSquares.Within, 1e-9)
			assert.InDelta(t, 6.0, res.FStatistic, 1e-9)
			assert.InDelta(t, 4.26, res.CriticalValue, 0.01)
			assert.InDelta(t, tc.p, res.PValue, tc.tol)
			assert.True(t, res.Significant)
		})
	}
}

func TestSamePopulation(t *testing.T) {
	groups := make(map[string][]float64)
	for i, name := range []string{"a", "b", "c", "d"} {
		groups[name] = rng.Sample(rng.NewNormalRNG(50, 2, int64(i+10)), 30)
	}
	res, err := OneWay(groups)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DegreesOfFreedom.Between)
	assert.Equal(t, 116, res.DegreesOfFreedom.Within)
	assert.Equal(t, res.FStatistic > res.CriticalValue, res.Significant)
	assert.InDelta(t, res.SumOfSquares.Total, res.SumOfSquares.Between+res.SumOfSquares.Within, 1e-9)
}

func TestNoVariation(t *testing.T) {
	res, err := OneWay(map[string][]float64{"a": {5, 5}, "b": {5, 5, 5}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.FStatistic)
	assert.Equal(t, 1.0, res.PValue)
	assert.False(t, res.Significant)

	_, err = OneWay(map[string][]float64{"a": {5, 5}, "b": {7, 7}})
	assert.True(t, errors.Is(err, stat.ErrInvalidInput), "got %v", err)
}

func TestAnovaErrors(t *testing.T) {
	tt := []struct {
		name   string
		groups map[string][]float64
		kind   error
	}{
		{name: "no groups", groups: nil, kind: stat.ErrInsufficientGroups},
		{name: "one group", groups: map[string][]float64{"a": {1, 2, 3}}, kind: stat.ErrInsufficientGroups},
		{name: "empty group", groups: map[string][]float64{"a": {1, 2, 3}, "b": {}}, kind: stat.ErrInvalidInput},
		{name: "one value per group", groups: map[string][]float64{"a": {1}, "b": {2}}, kind: stat.ErrInsufficientData},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OneWay(tc.groups)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}

	_, err := OneWay(map[string][]float64{"a": {1, 2}, "b": {3, 4}}, WithDistribution(nil))
	assert.True(t, errors.Is(err, stat.ErrConfiguration))
}

func TestGroupBy(t *testing.T) {
	groups, err := GroupBy([]float64{1, 2, 3, 4}, []string{"x", "y", "x", "y"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"x": {1, 3}, "y": {2, 4}}, groups)

	_, err = GroupBy([]float64{1, 2}, []string{"x"})
	assert.True(t, errors.Is(err, stat.ErrInvalidInput))

	_, err = GroupBy([]float64{1, 2}, []string{"x", ""})
	assert.True(t, errors.Is(err, stat.ErrInvalidInput))
}
