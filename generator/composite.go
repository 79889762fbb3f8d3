package generator

import (
	"fmt"

	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
)

// Additive sums the curves of its parts. Parameters are the parts'
// parameters concatenated in order.
//
// Finalize hands the full instrument list to every part but the last, which
// receives the instruments not already covered by the earlier parts'
// parameters.
type Additive struct {
	Parts []Generator
}

func (g Additive) NumberOfParameters() int {
	n := 0
	for _, p := range g.Parts {
		n += p.NumberOfParameters()
	}
	return n
}

func (g Additive) Finalize(instruments []instrument.Instrument) Generator {
	parts := make([]Generator, len(g.Parts))
	used := 0
	for i, p := range g.Parts {
		if i == len(g.Parts)-1 {
			parts[i] = p.Finalize(instruments[min(used, len(instruments)):])
			break
		}
		parts[i] = p.Finalize(instruments)
		used += parts[i].NumberOfParameters()
	}
	return Additive{Parts: parts}
}

func (g Additive) Generate(name string, env multicurve.Environment, params []float64) (curve.Curve, error) {
	if err := checkCount("Additive", name, g.NumberOfParameters(), params); err != nil {
		return nil, err
	}
	curves := make([]curve.Curve, len(g.Parts))
	off := 0
	for i, p := range g.Parts {
		n := p.NumberOfParameters()
		c, err := p.Generate(name, env, params[off:off+n])
		if err != nil {
			return nil, fmt.Errorf("Additive.Generate %s part %d: %w", name, i, err)
		}
		curves[i] = c
		off += n
	}
	return curve.NewAdditive(name, curves...), nil
}

// SpreadOverExisting generates Base + spread, where Base is a curve already
// present in the environment and the spread comes from Spread. Only the
// spread parameters are calibrated.
type SpreadOverExisting struct {
	Base   string
	Spread Generator
}

func (g SpreadOverExisting) NumberOfParameters() int { return g.Spread.NumberOfParameters() }

func (g SpreadOverExisting) Finalize(instruments []instrument.Instrument) Generator {
	return SpreadOverExisting{Base: g.Base, Spread: g.Spread.Finalize(instruments)}
}

func (g SpreadOverExisting) Generate(name string, env multicurve.Environment, params []float64) (curve.Curve, error) {
	if g.Base == name {
		return nil, fmt.Errorf("SpreadOverExisting.Generate %s: curve cannot be its own base", name)
	}
	base, err := env.Curve(g.Base)
	if err != nil {
		return nil, fmt.Errorf("SpreadOverExisting.Generate %s: %w", name, err)
	}
	spread, err := g.Spread.Generate(name, env, params)
	if err != nil {
		return nil, err
	}
	return curve.NewSpread(name, base, spread), nil
}
