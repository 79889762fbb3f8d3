package pricing

import (
	"fmt"

	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
)

// ParSpreadCalculator values an instrument as its par spread to quote.
type ParSpreadCalculator struct{}

func (ParSpreadCalculator) Value(inst instrument.Instrument, env multicurve.Environment) (float64, error) {
	ev, err := evaluate(inst, env)
	if err != nil {
		return 0, err
	}
	return ev.value, nil
}

// ParSpreadSensitivityCalculator differentiates the par spread with respect
// to the parameters of the named curves. The result is laid out curve by
// curve in the order of curveNames, each curve contributing
// NumberOfParameters entries. Curves the instrument depends on but that are
// not named are treated as fixed.
type ParSpreadSensitivityCalculator struct{}

func (ParSpreadSensitivityCalculator) Sensitivity(inst instrument.Instrument, curveNames []string, env multicurve.Environment) ([]float64, error) {
	offsets := make(map[string]int, len(curveNames))
	size := 0
	for _, name := range curveNames {
		n, err := env.NumberOfParameters(name)
		if err != nil {
			return nil, err
		}
		offsets[name] = size
		size += n
	}

	ev, err := evaluate(inst, env)
	if err != nil {
		return nil, err
	}
	out := make([]float64, size)
	for _, b := range ev.bars {
		c, err := env.Curve(b.curve)
		if err != nil {
			return nil, err
		}
		if b.bar == 0 {
			// An underflowed adjoint against an overflowed discount factor
			// would give 0·Inf.
			continue
		}
		// dD/dz = -t·D
		dDdz := -b.t * c.DiscountFactor(b.t)
		if dDdz == 0 {
			continue
		}
		for _, s := range c.ZeroRateSensitivity(b.t) {
			off, ok := offsets[s.Curve]
			if !ok {
				continue
			}
			n, _ := env.NumberOfParameters(s.Curve)
			if len(s.Values) != n {
				return nil, fmt.Errorf("pricing: curve %s reports %d sensitivities for %s, which has %d parameters",
					c.Name(), len(s.Values), s.Curve, n)
			}
			for k, v := range s.Values {
				out[off+k] += b.bar * dDdz * v
			}
		}
	}
	return out, nil
}
