package calibration

import (
	"fmt"

	"github.com/meenmo/curvecal/generator"
	"github.com/meenmo/curvecal/instrument"
)

// CurveSpec is one curve of a calibration unit: its name, its generator
// (finalized on Instruments during calibration) and the instruments that
// calibrate it.
type CurveSpec struct {
	Name        string
	Generator   generator.Generator
	Instruments []instrument.Instrument
}

// Unit is a group of curves solved simultaneously. InitialGuess is laid out
// curve by curve in the order of Curves.
type Unit struct {
	Curves       []CurveSpec
	InitialGuess []float64
}

// NewUnits assembles units from parallel per-unit, per-curve arrays.
func NewUnits(names [][]string, generators [][]generator.Generator, instruments [][][]instrument.Instrument, guesses [][]float64) ([]Unit, error) {
	n := len(names)
	if len(generators) != n || len(instruments) != n || len(guesses) != n {
		return nil, &ConfigError{
			Op:    "units",
			Index: -1,
			Err: fmt.Errorf("got %d name groups, %d generator groups, %d instrument groups and %d guesses",
				n, len(generators), len(instruments), len(guesses)),
		}
	}
	units := make([]Unit, n)
	for k := range names {
		if len(generators[k]) != len(names[k]) || len(instruments[k]) != len(names[k]) {
			return nil, &ConfigError{
				Op:    "units",
				Unit:  k,
				Index: -1,
				Err:   fmt.Errorf("%d names, %d generators, %d instrument lists", len(names[k]), len(generators[k]), len(instruments[k])),
			}
		}
		curves := make([]CurveSpec, len(names[k]))
		for c := range names[k] {
			curves[c] = CurveSpec{Name: names[k][c], Generator: generators[k][c], Instruments: instruments[k][c]}
		}
		units[k] = Unit{Curves: curves, InitialGuess: guesses[k]}
	}
	return units, nil
}

// finalize binds every generator to its instruments and flattens the
// instruments in curve order.
func (u Unit) finalize() ([]CurveGenerator, []instrument.Instrument) {
	gens := make([]CurveGenerator, len(u.Curves))
	var insts []instrument.Instrument
	for i, c := range u.Curves {
		var g generator.Generator
		if c.Generator != nil {
			g = c.Generator.Finalize(c.Instruments)
		}
		gens[i] = CurveGenerator{Name: c.Name, Generator: g}
		insts = append(insts, c.Instruments...)
	}
	return gens, insts
}
