// Package generator turns parameter slices into curves. A generator is a
// pure, immutable recipe: the same name, environment and parameters always
// produce an equal curve.
package generator

import (
	"errors"
	"fmt"

	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
)

var (
	// ErrParameterCount is returned when Generate receives the wrong number
	// of parameters.
	ErrParameterCount = errors.New("wrong number of parameters")
	// ErrNotFinalized is returned by generators that need Finalize first.
	ErrNotFinalized = errors.New("generator not finalized")
)

// Generator builds a named curve from its parameters and the curves built
// so far.
type Generator interface {
	NumberOfParameters() int
	Generate(name string, env multicurve.Environment, params []float64) (curve.Curve, error)
	// Finalize binds instrument-dependent structure, such as node times, and
	// returns the concrete generator used for calibration.
	Finalize(instruments []instrument.Instrument) Generator
}

func checkCount(kind, name string, want int, params []float64) error {
	if len(params) != want {
		return fmt.Errorf("%s.Generate %s: expected %d parameters, got %d: %w", kind, name, want, len(params), ErrParameterCount)
	}
	return nil
}

// Constant generates a flat curve.
type Constant struct{}

func (Constant) NumberOfParameters() int                      { return 1 }
func (g Constant) Finalize([]instrument.Instrument) Generator { return g }

func (Constant) Generate(name string, _ multicurve.Environment, params []float64) (curve.Curve, error) {
	if err := checkCount("Constant", name, 1, params); err != nil {
		return nil, err
	}
	return curve.NewConstant(name, params[0]), nil
}

// Interpolated generates an interpolated zero curve with one node per
// parameter. Finalize places the nodes at the instrument maturities.
type Interpolated struct {
	Interpolator curve.Interpolator
	Nodes        []float64
}

func (g Interpolated) NumberOfParameters() int { return len(g.Nodes) }

func (g Interpolated) Finalize(instruments []instrument.Instrument) Generator {
	return Interpolated{Interpolator: g.Interpolator, Nodes: instrument.Maturities(instruments)}
}

func (g Interpolated) Generate(name string, _ multicurve.Environment, params []float64) (curve.Curve, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("Interpolated.Generate %s: %w", name, ErrNotFinalized)
	}
	if err := checkCount("Interpolated", name, len(g.Nodes), params); err != nil {
		return nil, err
	}
	return curve.NewInterpolated(name, g.Nodes, params, g.Interpolator)
}

// InterpolatedAnchor is Interpolated with an extra node at Anchor whose
// zero rate is pinned to 0. It is meant as the shape component of an
// Additive generator, the level coming from another part.
type InterpolatedAnchor struct {
	Interpolator curve.Interpolator
	Nodes        []float64
	Anchor       float64
}

func (g InterpolatedAnchor) NumberOfParameters() int { return len(g.Nodes) }

func (g InterpolatedAnchor) Finalize(instruments []instrument.Instrument) Generator {
	return InterpolatedAnchor{Interpolator: g.Interpolator, Nodes: instrument.Maturities(instruments), Anchor: g.Anchor}
}

func (g InterpolatedAnchor) Generate(name string, _ multicurve.Environment, params []float64) (curve.Curve, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("InterpolatedAnchor.Generate %s: %w", name, ErrNotFinalized)
	}
	if err := checkCount("InterpolatedAnchor", name, len(g.Nodes), params); err != nil {
		return nil, err
	}
	return curve.NewInterpolatedAnchor(name, g.Nodes, params, g.Anchor, g.Interpolator)
}

// NelsonSiegel generates a Nelson-Siegel curve from (b0, b1, b2, λ).
type NelsonSiegel struct{}

func (NelsonSiegel) NumberOfParameters() int                      { return 4 }
func (g NelsonSiegel) Finalize([]instrument.Instrument) Generator { return g }

func (NelsonSiegel) Generate(name string, _ multicurve.Environment, params []float64) (curve.Curve, error) {
	if err := checkCount("NelsonSiegel", name, 4, params); err != nil {
		return nil, err
	}
	return curve.NewNelsonSiegel(name, params[0], params[1], params[2], params[3])
}
