package calibration_test

import (
	"testing"

	"github.com/meenmo/curvecal/calibration"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/generator"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
	"github.com/meenmo/curvecal/pricing"
	"github.com/stretchr/testify/require"
)

var (
	calc = pricing.ParSpreadCalculator{}
	sens = pricing.ParSpreadSensitivityCalculator{}

	dscTimes = []float64{0.5, 1, 2}
	dscTrue  = []float64{0.030, 0.032, 0.035}
	fwdTimes = []float64{0.25, 1, 2, 3, 5}
	fwdTrue  = []float64{0.033, 0.034, 0.036, 0.038, 0.040}
)

func newEngine(t *testing.T, mutate ...func(*config.SolverConfig)) *calibration.Engine {
	t.Helper()
	cfg := config.DefaultConfig.Solver
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := calibration.NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func floatCoupons(end, step float64) []instrument.FloatCoupon {
	var out []instrument.FloatCoupon
	n := int(end/step + 0.5)
	for i := 0; i < n; i++ {
		s := float64(i) * step
		out = append(out, instrument.FloatCoupon{Start: s, End: s + step, Payment: s + step, Accrual: step})
	}
	return out
}

func fixedCoupons(end float64) []instrument.FixedCoupon {
	var out []instrument.FixedCoupon
	for y := 1; float64(y) <= end+1e-9; y++ {
		out = append(out, instrument.FixedCoupon{Payment: float64(y), Accrual: 1})
	}
	return out
}

func dscInstruments(quotes []float64) []instrument.Instrument {
	return []instrument.Instrument{
		instrument.Deposit{Start: 0, End: 0.5, Accrual: 0.5, Rate: quotes[0], Curve: "DSC"},
		instrument.Deposit{Start: 0, End: 1, Accrual: 1, Rate: quotes[1], Curve: "DSC"},
		instrument.FixedFloatSwap{Fixed: fixedCoupons(2), Float: floatCoupons(2, 1), Rate: quotes[2], DiscountCurve: "DSC", ForwardCurve: "DSC"},
	}
}

func fwdInstruments(quotes []float64) []instrument.Instrument {
	irs := func(end, q float64) instrument.Instrument {
		return instrument.FixedFloatSwap{Fixed: fixedCoupons(end), Float: floatCoupons(end, 0.25), Rate: q, DiscountCurve: "DSC", ForwardCurve: "FWD"}
	}
	return []instrument.Instrument{
		instrument.FRA{Start: 0, End: 0.25, Accrual: 0.25, Rate: quotes[0], ForwardCurve: "FWD"},
		instrument.FRA{Start: 0.5, End: 1, Accrual: 0.5, Rate: quotes[1], ForwardCurve: "FWD"},
		irs(2, quotes[2]),
		irs(3, quotes[3]),
		irs(5, quotes[4]),
	}
}

// trueEnvironment holds the curves the market quotes are generated from.
func trueEnvironment(t *testing.T) multicurve.Environment {
	t.Helper()
	dsc, err := curve.NewInterpolated("DSC", dscTimes, dscTrue, curve.LogLinearDiscount{})
	require.NoError(t, err)
	fwd, err := curve.NewInterpolated("FWD", fwdTimes, fwdTrue, curve.LinearZero{})
	require.NoError(t, err)
	env, err := multicurve.New(dsc, fwd)
	require.NoError(t, err)
	return env
}

// parQuotes prices zero-quoted instruments on the true curves, which gives
// their par quotes.
func parQuotes(t *testing.T, insts []instrument.Instrument) []float64 {
	t.Helper()
	env := trueEnvironment(t)
	out := make([]float64, len(insts))
	for i, inst := range insts {
		v, err := calc.Value(inst, env)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func marketQuotes(t *testing.T) (dsc, fwd []float64) {
	t.Helper()
	return parQuotes(t, dscInstruments(make([]float64, 3))), parQuotes(t, fwdInstruments(make([]float64, 5)))
}

func guess(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.01
	}
	return out
}

func dscUnit(quotes []float64) calibration.Unit {
	return calibration.Unit{
		Curves: []calibration.CurveSpec{{
			Name:        "DSC",
			Generator:   generator.Interpolated{Interpolator: curve.LogLinearDiscount{}},
			Instruments: dscInstruments(quotes),
		}},
		InitialGuess: guess(3),
	}
}

func fwdUnit(quotes []float64) calibration.Unit {
	return calibration.Unit{
		Curves: []calibration.CurveSpec{{
			Name:        "FWD",
			Generator:   generator.Interpolated{Interpolator: curve.LinearZero{}},
			Instruments: fwdInstruments(quotes),
		}},
		InitialGuess: guess(5),
	}
}

// twoUnitBlock is a 3-parameter discount unit followed by a 5-parameter
// forward unit.
func twoUnitBlock(t *testing.T) []calibration.Unit {
	t.Helper()
	dq, fq := marketQuotes(t)
	return []calibration.Unit{dscUnit(dq), fwdUnit(fq)}
}
