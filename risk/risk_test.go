package risk_test

import (
	"context"
	"testing"

	"github.com/meenmo/curvecal/calibration"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/generator"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
	"github.com/meenmo/curvecal/pricing"
	"github.com/meenmo/curvecal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	calc = pricing.ParSpreadCalculator{}
	sens = pricing.ParSpreadSensitivityCalculator{}

	dscQuotes = []float64{0.0301, 0.0322, 0.0349}
	fwdQuotes = []float64{0.0335, 0.0352, 0.0368, 0.0381, 0.0405}
)

func floatLeg(end, step float64) []instrument.FloatCoupon {
	var out []instrument.FloatCoupon
	n := int(end/step + 0.5)
	for i := 0; i < n; i++ {
		s := float64(i) * step
		out = append(out, instrument.FloatCoupon{Start: s, End: s + step, Payment: s + step, Accrual: step})
	}
	return out
}

func fixedLeg(end int) []instrument.FixedCoupon {
	out := make([]instrument.FixedCoupon, end)
	for y := 1; y <= end; y++ {
		out[y-1] = instrument.FixedCoupon{Payment: float64(y), Accrual: 1}
	}
	return out
}

func swap(end int, rate float64, forward string) instrument.FixedFloatSwap {
	step := 0.25
	if forward == "DSC" {
		step = 1
	}
	return instrument.FixedFloatSwap{
		Fixed: fixedLeg(end), Float: floatLeg(float64(end), step), Rate: rate,
		DiscountCurve: "DSC", ForwardCurve: forward,
	}
}

func block(dq, fq []float64) []calibration.Unit {
	return []calibration.Unit{
		{
			Curves: []calibration.CurveSpec{{
				Name:      "DSC",
				Generator: generator.Interpolated{Interpolator: curve.LogLinearDiscount{}},
				Instruments: []instrument.Instrument{
					instrument.Deposit{End: 0.5, Accrual: 0.5, Rate: dq[0], Curve: "DSC"},
					instrument.Deposit{End: 1, Accrual: 1, Rate: dq[1], Curve: "DSC"},
					swap(2, dq[2], "DSC"),
				},
			}},
			InitialGuess: []float64{0.01, 0.01, 0.01},
		},
		{
			Curves: []calibration.CurveSpec{{
				Name:      "FWD",
				Generator: generator.Interpolated{Interpolator: curve.LinearZero{}},
				Instruments: []instrument.Instrument{
					instrument.FRA{End: 0.25, Accrual: 0.25, Rate: fq[0], ForwardCurve: "FWD"},
					instrument.FRA{Start: 0.5, End: 1, Accrual: 0.5, Rate: fq[1], ForwardCurve: "FWD"},
					swap(2, fq[2], "FWD"),
					swap(3, fq[3], "FWD"),
					swap(5, fq[4], "FWD"),
				},
			}},
			InitialGuess: []float64{0.01, 0.01, 0.01, 0.01, 0.01},
		},
	}
}

func calibrate(t *testing.T, dq, fq []float64) (multicurve.Environment, *calibration.BlockBundle) {
	t.Helper()
	e, err := calibration.NewEngine(config.DefaultConfig.Solver)
	require.NoError(t, err)
	env, bundle, err := e.CalibrateBlock(context.Background(), block(dq, fq), multicurve.Environment{}, calc, sens)
	require.NoError(t, err)
	return env, bundle
}

func TestMarketQuoteSensitivityMatchesBumpAndRecalibrate(t *testing.T) {
	t.Parallel()

	// An off-market 4Y swap not among the calibrating instruments.
	target := swap(4, 0.03, "FWD")
	env, bundle := calibrate(t, dscQuotes, fwdQuotes)

	ps, err := risk.ParameterSensitivity(target, []string{"DSC", "FWD"}, env, sens)
	require.NoError(t, err)
	mqs, err := risk.MarketQuoteSensitivity(ps, bundle)
	require.NoError(t, err)
	require.Len(t, mqs, 2)
	require.Equal(t, "DSC", mqs[0].Curve)
	require.Equal(t, "FWD", mqs[1].Curve)

	const h = 1e-4
	value := func(dq, fq []float64) float64 {
		env, _ := calibrate(t, dq, fq)
		v, err := calc.Value(target, env)
		require.NoError(t, err)
		return v
	}
	bump := func(q []float64, i int, d float64) []float64 {
		out := append([]float64(nil), q...)
		out[i] += d
		return out
	}

	for i := range dscQuotes {
		fd := (value(bump(dscQuotes, i, h), fwdQuotes) - value(bump(dscQuotes, i, -h), fwdQuotes)) / (2 * h)
		assert.InDelta(t, fd, mqs[0].Values[i], 1e-5, "DSC quote %d", i)
	}
	for i := range fwdQuotes {
		fd := (value(dscQuotes, bump(fwdQuotes, i, h)) - value(dscQuotes, bump(fwdQuotes, i, -h))) / (2 * h)
		assert.InDelta(t, fd, mqs[1].Values[i], 1e-5, "FWD quote %d", i)
	}
}

func TestCalibratingInstrumentIsItsOwnQuote(t *testing.T) {
	t.Parallel()

	env, bundle := calibrate(t, dscQuotes, fwdQuotes)
	// The 3Y FWD swap residual moves one-for-one with its own par rate.
	inst := swap(3, 0, "FWD")
	ps, err := risk.ParameterSensitivity(inst, []string{"DSC", "FWD"}, env, sens)
	require.NoError(t, err)
	mqs, err := risk.MarketQuoteSensitivity(ps, bundle)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0, 0, 0}, mqs[0].Values, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1, 0}, mqs[1].Values, 1e-9)
}

func TestMarketQuoteSensitivityErrors(t *testing.T) {
	t.Parallel()

	_, bundle := calibrate(t, dscQuotes, fwdQuotes)
	_, err := risk.MarketQuoteSensitivity([]curve.Sensitivity{{Curve: "BASIS", Values: []float64{1}}}, bundle)
	require.ErrorIs(t, err, calibration.ErrUnknownCurve)
	_, err = risk.MarketQuoteSensitivity([]curve.Sensitivity{{Curve: "DSC", Values: []float64{1}}}, bundle)
	require.ErrorIs(t, err, calibration.ErrParameterLength)
}
