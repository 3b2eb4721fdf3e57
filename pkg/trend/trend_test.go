package trend

import (
	"errors"
	"testing"

	"github.com/BTBurke/labstat/pkg/rng"
	"github.com/BTBurke/labstat/pkg/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecreasingTrend(t *testing.T) {
	m, err := Analyze([]float64{100, 98, 95, 90, 85})
	require.NoError(t, err)

	assert.Equal(t, Decreasing, m.Direction)
	assert.True(t, m.Slope < 0)
	assert.InDelta(t, -3.8, m.Slope, 1e-9)
	assert.InDelta(t, 101.2, m.Intercept, 1e-9)
	assert.InDelta(t, -0.983783, m.Correlation, 1e-6)
	assert.InDelta(t, 0.967828, m.RSquared, 1e-6)

	assert.Equal(t, 3, m.Forecast.Horizon)
	assert.Equal(t, m.RSquared, m.Forecast.Confidence)
	require.Len(t, m.Forecast.Values, 3)
	assert.InDelta(t, 82.2, m.Forecast.Values[0], 1e-9)
	assert.InDelta(t, 78.4, m.Forecast.Values[1], 1e-9)
	assert.InDelta(t, 74.6, m.Forecast.Values[2], 1e-9)
}

func TestClassify(t *testing.T) {
	tt := []struct {
		slope float64
		exp   Direction
	}{
		{slope: 0.5, exp: Increasing},
		{slope: -0.5, exp: Decreasing},
		{slope: 0.009, exp: Stable},
		{slope: -0.009, exp: Stable},
		{slope: 0.01, exp: Increasing},
		{slope: 0, exp: Stable},
	}
	for _, tc := range tt {
		assert.Equal(t, tc.exp, Classify(tc.slope), "slope %v", tc.slope)
	}
}

func TestPerfectFit(t *testing.T) {
	m, err := Analyze([]float64{1, 2, 3, 4, 5}, WithHorizon(2))
	require.NoError(t, err)
	assert.Equal(t, Increasing, m.Direction)
	assert.InDelta(t, 1.0, m.Slope, 1e-12)
	assert.InDelta(t, 1.0, m.RSquared, 1e-12)
	assert.InDelta(t, 6.0, m.Forecast.Values[0], 1e-9)
	assert.InDelta(t, 7.0, m.Forecast.Values[1], 1e-9)
}

func TestDegenerate(t *testing.T) {
	tt := []struct {
		name   string
		values []float64
		mean   float64
	}{
		{name: "one value", values: []float64{4}, mean: 4},
		{name: "two values", values: []float64{4, 10}, mean: 7},
		{name: "constant", values: []float64{3, 3, 3, 3}, mean: 3},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Analyze(tc.values)
			require.NoError(t, err)
			assert.Equal(t, Stable, m.Direction)
			assert.Equal(t, 0.0, m.Slope)
			assert.Equal(t, 0.0, m.RSquared)
			assert.Equal(t, 0.0, m.Correlation)
			assert.Equal(t, tc.mean, m.Intercept)
			assert.Equal(t, []float64{tc.mean, tc.mean, tc.mean}, m.Forecast.Values)
			assert.Equal(t, 0.0, m.Forecast.Confidence)
		})
	}
}

func TestTrendErrors(t *testing.T) {
	_, err := Analyze(nil)
	assert.True(t, errors.Is(err, stat.ErrInvalidInput))

	_, err = Analyze([]float64{1, 2, 3}, WithHorizon(0))
	assert.True(t, errors.Is(err, stat.ErrConfiguration))
}

func TestDriftDetected(t *testing.T) {
	up := rng.Sample(rng.NewDriftRNG(50, 0.5, 0.2, 5), 40)
	m, err := Analyze(up)
	require.NoError(t, err)
	assert.Equal(t, Increasing, m.Direction)
	assert.InDelta(t, 0.5, m.Slope, 0.05)
	assert.True(t, m.RSquared > 0.9)

	down := rng.Sample(rng.NewDriftRNG(50, -0.5, 0.2, 6), 40)
	m, err = Analyze(down)
	require.NoError(t, err)
	assert.Equal(t, Decreasing, m.Direction)
}
