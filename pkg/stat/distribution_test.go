package stat

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTCriticalLookup(t *testing.T) {
	table := NewLookupTable()
	tt := []struct {
		df    int
		alpha float64
		exp   float64
	}{
		{df: 4, alpha: 0.05, exp: 2.776},
		{df: 0, alpha: 0.05, exp: 12.706},
		{df: 35, alpha: 0.05, exp: 2.042},
		{df: 1000, alpha: 0.05, exp: 1.980},
		{df: Infinity, alpha: 0.05, exp: 1.960},
		{df: 10, alpha: 0.01, exp: 3.169},
		{df: 10, alpha: 0.10, exp: 1.812},
		{df: 10, alpha: 1.0 - 95.0/100.0, exp: 2.228},
	}
	for _, tc := range tt {
		t.Run(fmt.Sprintf("df=%d alpha=%v", tc.df, tc.alpha), func(t *testing.T) {
			assert.Equal(t, tc.exp, table.TCritical(tc.df, tc.alpha))
		})
	}
}

func TestTCriticalUntabulated(t *testing.T) {
	table := NewLookupTable()
	tt := []struct {
		df    int
		alpha float64
	}{
		{df: 4, alpha: 0.5},
		{df: 10, alpha: 0.045},
		{df: 2, alpha: 0.2},
		{df: 35, alpha: 0.001},
	}
	for _, tc := range tt {
		t.Run(fmt.Sprintf("df=%d alpha=%v", tc.df, tc.alpha), func(t *testing.T) {
			assert.InDelta(t, Exact{}.TCritical(tc.df, tc.alpha), table.TCritical(tc.df, tc.alpha), 1e-4)
		})
	}
	assert.InDelta(t, 0.740697, table.TCritical(4, 0.5), 1e-5)
}

func TestTTwoTailedSmallSamples(t *testing.T) {
	table := NewLookupTable()
	tt := []struct {
		t   float64
		df  int
		exp float64
		tol float64
	}{
		{t: 1e6, df: 1, exp: 6.366198e-7, tol: 1e-11},
		{t: 1e6, df: 2, exp: 0, tol: 1e-11},
		{t: 1e6, df: 3, exp: 0, tol: 1e-11},
		{t: 100.813224, df: 2, exp: 9.837866e-5, tol: 1e-9},
		{t: 2.309401, df: 3, exp: 0.104088, tol: 1e-6},
	}
	for _, tc := range tt {
		t.Run(fmt.Sprintf("t=%v df=%d", tc.t, tc.df), func(t *testing.T) {
			assert.InDelta(t, tc.exp, table.TTwoTailed(tc.t, tc.df), tc.tol)
			assert.InDelta(t, Exact{}.TTwoTailed(tc.t, tc.df), table.TTwoTailed(tc.t, tc.df), tc.tol)
		})
	}
}

func TestFCriticalLookup(t *testing.T) {
	table := NewLookupTable()
	assert.Equal(t, 7.71, table.FCritical(1, 4, 0.05))
	assert.Equal(t, 2.75, table.FCritical(11, 13, 0.05))
	assert.Equal(t, 3.84, table.FCritical(1, 5000, 0.05))
	assert.True(t, table.FCritical(1, 4, 0.01) > table.FCritical(1, 4, 0.05))
}

func TestTTwoTailed(t *testing.T) {
	for _, d := range []Distribution{NewLookupTable(), Exact{}} {
		t.Run(fmt.Sprintf("%T", d), func(t *testing.T) {
			assert.InDelta(t, 0.05, d.TTwoTailed(2.042, 30), 0.005)
			assert.InDelta(t, 1.0, d.TTwoTailed(0, 10), 1e-9)
			assert.Equal(t, 0.0, d.TTwoTailed(math.Inf(1), 3))
			assert.Equal(t, d.TTwoTailed(-2.5, 8), d.TTwoTailed(2.5, 8))
			assert.True(t, d.TTwoTailed(3.0, 8) < d.TTwoTailed(2.0, 8))
		})
	}
}

func TestFUpperTail(t *testing.T) {
	for _, d := range []Distribution{NewLookupTable(), Exact{}} {
		t.Run(fmt.Sprintf("%T", d), func(t *testing.T) {
			assert.InDelta(t, 0.05, d.FUpperTail(7.71, 1, 4), 0.01)
			assert.InDelta(t, 0.05, d.FUpperTail(2.71, 5, 20), 0.01)
			assert.Equal(t, 1.0, d.FUpperTail(0, 2, 10))
			assert.True(t, d.FUpperTail(121.5, 1, 4) < 0.01)
		})
	}
}

func TestExactCritical(t *testing.T) {
	assert.InDelta(t, 2.776, Exact{}.TCritical(4, 0.05), 1e-3)
	assert.InDelta(t, 7.709, Exact{}.FCritical(1, 4, 0.05), 1e-2)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("parameter tensile: %w", Errorf(InsufficientData, "control chart", "need 2 values, got %d", 1))
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, InsufficientData, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "parameter tensile: control chart: insufficient_data: need 2 values, got 1", err.Error())
}
