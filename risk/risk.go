// Package risk turns curve-parameter sensitivities into sensitivities to
// the market quotes of the calibrating instruments.
package risk

import (
	"fmt"

	"github.com/meenmo/curvecal/calibration"
	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
	"gonum.org/v1/gonum/mat"
)

// ParameterSensitivity differentiates an instrument's value with respect to
// the parameters of the named curves and splits the result per curve.
func ParameterSensitivity(inst instrument.Instrument, curveNames []string, env multicurve.Environment,
	sens calibration.SensitivityCalculator) ([]curve.Sensitivity, error) {
	flat, err := sens.Sensitivity(inst, curveNames, env)
	if err != nil {
		return nil, err
	}
	out := make([]curve.Sensitivity, 0, len(curveNames))
	off := 0
	for _, name := range curveNames {
		n, err := env.NumberOfParameters(name)
		if err != nil {
			return nil, err
		}
		if off+n > len(flat) {
			return nil, fmt.Errorf("risk: %d sensitivities do not cover curve %s: %w", len(flat), name, calibration.ErrParameterLength)
		}
		out = append(out, curve.Sensitivity{Curve: name, Values: flat[off : off+n]})
		off += n
	}
	return out, nil
}

// MarketQuoteSensitivity multiplies each curve's parameter sensitivity by
// that curve's rows of the inverse block Jacobian. The result holds, per
// curve, the sensitivity to the quotes of the instruments that calibrate
// it, in instrument order.
func MarketQuoteSensitivity(paramSens []curve.Sensitivity, bundle *calibration.BlockBundle) ([]curve.Sensitivity, error) {
	var parts []curve.Sensitivity
	for _, s := range paramSens {
		entry, ok := bundle.Entry(s.Curve)
		if !ok {
			return nil, fmt.Errorf("risk: curve %s: %w", s.Curve, calibration.ErrUnknownCurve)
		}
		rows, cols := entry.InverseJacobian.Dims()
		if len(s.Values) != rows {
			return nil, fmt.Errorf("risk: curve %s has %d sensitivities for %d parameters: %w",
				s.Curve, len(s.Values), rows, calibration.ErrParameterLength)
		}
		if rows == 0 {
			continue
		}

		var quoteSens mat.VecDense
		quoteSens.MulVec(entry.InverseJacobian.T(), mat.NewVecDense(rows, s.Values))
		raw := quoteSens.RawVector().Data[:cols]
		for _, e := range entry.Block.Entries() {
			parts = append(parts, curve.Sensitivity{
				Curve:  e.Curve,
				Values: append([]float64(nil), raw[e.Offset:e.Offset+e.Length]...),
			})
		}
	}
	return curve.MergeSensitivities(parts), nil
}
