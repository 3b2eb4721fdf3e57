package compliance

import (
	"errors"
	"testing"

	"github.com/BTBurke/labstat/pkg/rng"
	"github.com/BTBurke/labstat/pkg/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tt := []struct {
		name      string
		measured  float64
		ref       Reference
		tolerance float64
		deviation float64
		percent   float64
		compliant bool
	}{
		{name: "within tolerance", measured: 102, ref: Reference{StandardID: "ASTM E8", Value: 100, Tolerance: Tolerance(5)}, tolerance: 5, deviation: 2, percent: 2, compliant: true},
		{name: "outside tolerance", measured: 94, ref: Reference{StandardID: "ASTM E8", Value: 100, Tolerance: Tolerance(5)}, tolerance: 5, deviation: -6, percent: -6, compliant: false},
		{name: "on the boundary", measured: 105, ref: Reference{Value: 100, Tolerance: Tolerance(5)}, tolerance: 5, deviation: 5, percent: 5, compliant: true},
		{name: "range", measured: 48, ref: Reference{Value: 50, Range: &Range{Min: 46, Max: 54}}, tolerance: 4, deviation: -2, percent: -4, compliant: true},
		{name: "tolerance beats range", measured: 53, ref: Reference{Value: 50, Tolerance: Tolerance(1), Range: &Range{Min: 40, Max: 60}}, tolerance: 1, deviation: 3, percent: 6, compliant: false},
		{name: "zero reference", measured: 0, ref: Reference{Value: 0, Tolerance: Tolerance(0.1)}, tolerance: 0.1, deviation: 0, percent: 0, compliant: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Check(tc.measured, []Reference{tc.ref})
			require.NoError(t, err)
			require.Len(t, res, 1)
			r := res[0]
			assert.Equal(t, tc.ref.StandardID, r.StandardID)
			assert.Equal(t, tc.measured, r.MeasuredValue)
			assert.Equal(t, tc.ref.Value, r.ReferenceValue)
			assert.InDelta(t, tc.tolerance, r.Tolerance, 1e-12)
			assert.InDelta(t, tc.deviation, r.Deviation, 1e-12)
			assert.InDelta(t, tc.percent, r.DeviationPercent, 1e-12)
			assert.Equal(t, tc.compliant, r.Compliant)
		})
	}
}

func TestIdentityIsCompliant(t *testing.T) {
	values := rng.Sample(rng.NewNormalRNG(0, 100, 3), 200)
	tols := rng.Sample(rng.NewLogNormalRNG(1, 0.5, 4), 200)
	for i, v := range values {
		res, err := Check(v, []Reference{{Value: v, Tolerance: Tolerance(tols[i])}})
		require.NoError(t, err)
		assert.Equal(t, 0.0, res[0].DeviationPercent)
		assert.True(t, res[0].Compliant)
	}
}

func TestCheckKeepsOrder(t *testing.T) {
	refs := []Reference{
		{Source: "supplier", StandardID: "a", Value: 10, Tolerance: Tolerance(1)},
		{Source: "ISO", StandardID: "b", Value: 12, Tolerance: Tolerance(1)},
	}
	res, err := Check(10.5, refs)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].StandardID)
	assert.Equal(t, "supplier", res[0].Source)
	assert.True(t, res[0].Compliant)
	assert.Equal(t, "b", res[1].StandardID)
	assert.False(t, res[1].Compliant)

	res, err = Check(1, nil)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestCheckErrors(t *testing.T) {
	tt := []struct {
		name     string
		measured float64
		ref      Reference
	}{
		{name: "no tolerance", measured: 1, ref: Reference{Value: 1}},
		{name: "negative tolerance", measured: 1, ref: Reference{Value: 1, Tolerance: Tolerance(-1)}},
		{name: "inverted range", measured: 1, ref: Reference{Value: 1, Range: &Range{Min: 2, Max: 0}}},
		{name: "zero reference", measured: 1, ref: Reference{Value: 0, Tolerance: Tolerance(1)}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Check(tc.measured, []Reference{tc.ref})
			assert.True(t, errors.Is(err, stat.ErrInvalidInput), "got %v", err)
		})
	}
}
