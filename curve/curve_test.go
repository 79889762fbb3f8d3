package curve_test

import (
	"math"
	"testing"

	"github.com/meenmo/curvecal/curve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rebuild constructs a curve of the same shape from a parameter vector so
// that analytic sensitivities can be compared with finite differences.
type rebuild func(p []float64) curve.Curve

func checkOwnSensitivity(t *testing.T, build rebuild, params []float64, times []float64) {
	t.Helper()
	const h = 1e-7
	base := build(params)
	for _, tm := range times {
		got := base.ZeroRateSensitivity(tm)[0].Values
		require.Len(t, got, len(params))
		for k := range params {
			up := append([]float64(nil), params...)
			dn := append([]float64(nil), params...)
			up[k] += h
			dn[k] -= h
			fd := (build(up).ZeroRate(tm) - build(dn).ZeroRate(tm)) / (2 * h)
			assert.InDelta(t, fd, got[k], 1e-6, "t=%g param=%d", tm, k)
		}
	}
}

var sampleTimes = []float64{0, 0.1, 0.5, 1, 1.7, 2, 3.5, 5, 7, 10, 15}

func TestConstant(t *testing.T) {
	t.Parallel()

	c := curve.NewConstant("FLAT", 0.03)
	assert.Equal(t, 0.03, c.ZeroRate(7))
	assert.InDelta(t, math.Exp(-0.06), c.DiscountFactor(2), 1e-15)
	assert.Equal(t, 1.0, c.DiscountFactor(0))
	assert.Equal(t, []curve.Sensitivity{{Curve: "FLAT", Values: []float64{1}}}, c.ZeroRateSensitivity(3))
}

func TestInterpolatedLinearZero(t *testing.T) {
	t.Parallel()

	c, err := curve.NewInterpolated("Z", []float64{1, 2, 5}, []float64{0.01, 0.02, 0.03}, curve.LinearZero{})
	require.NoError(t, err)

	assert.InDelta(t, 0.01, c.ZeroRate(0.5), 1e-15, "flat left")
	assert.InDelta(t, 0.015, c.ZeroRate(1.5), 1e-15)
	assert.InDelta(t, 0.02, c.ZeroRate(2), 1e-15)
	assert.InDelta(t, 0.03, c.ZeroRate(9), 1e-15, "flat right")
	assert.Equal(t, 3, c.NumberOfParameters())
}

func TestInterpolatedParameterOrderFollowsCaller(t *testing.T) {
	t.Parallel()

	// Nodes are given out of order; parameter k still belongs to nodes[k].
	c, err := curve.NewInterpolated("Z", []float64{5, 1, 2}, []float64{0.03, 0.01, 0.02}, curve.LinearZero{})
	require.NoError(t, err)

	assert.InDelta(t, 0.015, c.ZeroRate(1.5), 1e-15)
	s := c.ZeroRateSensitivity(1.5)[0].Values
	assert.InDeltaSlice(t, []float64{0, 0.5, 0.5}, s, 1e-15)
	assert.Equal(t, []float64{1, 2, 5}, c.Nodes())
}

func TestInterpolatedSensitivities(t *testing.T) {
	t.Parallel()

	nodes := []float64{0.25, 1, 2, 5, 10}
	params := []float64{0.011, 0.014, 0.019, 0.025, 0.028}
	for _, interp := range []curve.Interpolator{curve.LinearZero{}, curve.LogLinearDiscount{}} {
		t.Run(interp.Name(), func(t *testing.T) {
			checkOwnSensitivity(t, func(p []float64) curve.Curve {
				c, err := curve.NewInterpolated("Z", nodes, p, interp)
				require.NoError(t, err)
				return c
			}, params, sampleTimes)
		})
	}
}

func TestLogLinearDiscountInterpolatesLogDF(t *testing.T) {
	t.Parallel()

	c, err := curve.NewInterpolated("Z", []float64{1, 3}, []float64{0.02, 0.04}, curve.LogLinearDiscount{})
	require.NoError(t, err)
	lnDF := 0.5*math.Log(math.Exp(-0.02)) + 0.5*math.Log(math.Exp(-0.12))
	assert.InDelta(t, math.Exp(lnDF), c.DiscountFactor(2), 1e-14)
}

func TestInterpolatedAnchor(t *testing.T) {
	t.Parallel()

	c, err := curve.NewInterpolatedAnchor("A", []float64{2}, []float64{0.02}, 0, curve.LinearZero{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.NumberOfParameters())
	assert.InDelta(t, 0.01, c.ZeroRate(1), 1e-15)
	assert.InDeltaSlice(t, []float64{0.5}, c.ZeroRateSensitivity(1)[0].Values, 1e-15)

	_, err = curve.NewInterpolated("E", nil, nil, curve.LinearZero{})
	require.ErrorIs(t, err, curve.ErrNoNodes)
}

func TestNelsonSiegelSensitivities(t *testing.T) {
	t.Parallel()

	checkOwnSensitivity(t, func(p []float64) curve.Curve {
		c, err := curve.NewNelsonSiegel("NS", p[0], p[1], p[2], p[3])
		require.NoError(t, err)
		return c
	}, []float64{0.03, -0.01, 0.02, 1.8}, sampleTimes)

	_, err := curve.NewNelsonSiegel("NS", 0.03, 0, 0, 0)
	require.Error(t, err)
}

func TestNelsonSiegelShortEnd(t *testing.T) {
	t.Parallel()

	c, err := curve.NewNelsonSiegel("NS", 0.03, -0.01, 0.02, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, c.ZeroRate(0), 1e-12)
	assert.InDelta(t, 0.03, c.ZeroRate(1e4), 1e-5)
}

func TestAdditiveConcatenatesParameters(t *testing.T) {
	t.Parallel()

	level := curve.NewConstant("SUM", 0.01)
	shape, err := curve.NewInterpolated("SUM", []float64{1, 3}, []float64{0.002, 0.004}, curve.LinearZero{})
	require.NoError(t, err)
	c := curve.NewAdditive("SUM", level, shape)

	assert.Equal(t, 3, c.NumberOfParameters())
	assert.InDelta(t, 0.013, c.ZeroRate(2), 1e-15)
	s := c.ZeroRateSensitivity(2)
	require.Len(t, s, 1)
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.5}, s[0].Values, 1e-15)
}

func TestSpreadAttributesBaseCurve(t *testing.T) {
	t.Parallel()

	base, err := curve.NewInterpolated("DSC", []float64{1, 2}, []float64{0.02, 0.03}, curve.LinearZero{})
	require.NoError(t, err)
	spread := curve.NewConstant("FWD", 0.005)
	c := curve.NewSpread("FWD", base, spread)

	assert.Equal(t, 1, c.NumberOfParameters())
	assert.InDelta(t, 0.03, c.ZeroRate(1.5), 1e-15)
	s := c.ZeroRateSensitivity(1.5)
	require.Len(t, s, 2)
	assert.Equal(t, "FWD", s[0].Curve)
	assert.Equal(t, []float64{1}, s[0].Values)
	assert.Equal(t, "DSC", s[1].Curve)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, s[1].Values, 1e-15)
}

func TestMergeSensitivities(t *testing.T) {
	t.Parallel()

	got := curve.MergeSensitivities([]curve.Sensitivity{
		{Curve: "A", Values: []float64{1, 2}},
		{Curve: "B", Values: []float64{3}},
		{Curve: "A", Values: []float64{10, 20}},
	})
	assert.Equal(t, []curve.Sensitivity{
		{Curve: "A", Values: []float64{11, 22}},
		{Curve: "B", Values: []float64{3}},
	}, got)
}
