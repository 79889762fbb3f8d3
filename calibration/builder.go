package calibration

import (
	"fmt"
	"slices"

	"github.com/meenmo/curvecal/generator"
	"github.com/meenmo/curvecal/multicurve"
)

// CurveGenerator pairs a curve name with the generator that builds it.
type CurveGenerator struct {
	Name      string
	Generator generator.Generator
}

// CurveBuilder turns a flat parameter vector into an environment: the known
// curves plus one generated curve per generator, built in order so that a
// generator sees every curve registered before it.
type CurveBuilder struct {
	known      multicurve.Environment
	generators []CurveGenerator
	layout     ParameterLayout
}

// NewCurveBuilder lays the generators out in order.
func NewCurveBuilder(known multicurve.Environment, generators []CurveGenerator) (*CurveBuilder, error) {
	var layout ParameterLayout
	for i, g := range generators {
		if g.Generator == nil {
			return nil, &ConfigError{Op: "build", Curve: g.Name, Index: -1, Err: fmt.Errorf("generator %d is nil", i)}
		}
		var err error
		if layout, err = layout.Append(g.Name, g.Generator.NumberOfParameters()); err != nil {
			return nil, &ConfigError{Op: "build", Curve: g.Name, Index: -1, Err: err}
		}
	}
	return &CurveBuilder{
		known:      known,
		generators: slices.Clone(generators),
		layout:     layout,
	}, nil
}

// Layout is the parameter layout of the generated curves.
func (b *CurveBuilder) Layout() ParameterLayout { return b.layout }

// Build generates the curves from params.
func (b *CurveBuilder) Build(params []float64) (multicurve.Environment, error) {
	if len(params) != b.layout.Size() {
		return multicurve.Environment{}, &ConfigError{
			Op:    "build",
			Index: -1,
			Err:   fmt.Errorf("got %d parameters, want %d: %w", len(params), b.layout.Size(), ErrParameterLength),
		}
	}
	env := b.known
	for i, g := range b.generators {
		e := b.layout.entries[i]
		c, err := g.Generator.Generate(g.Name, env, slices.Clone(params[e.Offset:e.Offset+e.Length]))
		if err != nil {
			return multicurve.Environment{}, &ConfigError{Op: "build", Curve: g.Name, Index: -1, Err: err}
		}
		if c.NumberOfParameters() != e.Length {
			return multicurve.Environment{}, &ConfigError{
				Op:    "build",
				Curve: g.Name,
				Index: -1,
				Err:   fmt.Errorf("curve has %d parameters, generator declared %d: %w", c.NumberOfParameters(), e.Length, ErrParameterLength),
			}
		}
		env = env.With(c)
	}
	return env, nil
}
