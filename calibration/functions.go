package calibration

import (
	"fmt"

	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ValueCalculator values an instrument as a residual: zero when the
// environment reprices its quote.
type ValueCalculator interface {
	Value(inst instrument.Instrument, env multicurve.Environment) (float64, error)
}

// SensitivityCalculator differentiates the residual with respect to the
// parameters of curveNames, laid out curve by curve in that order.
type SensitivityCalculator interface {
	Sensitivity(inst instrument.Instrument, curveNames []string, env multicurve.Environment) ([]float64, error)
}

// Objective maps parameters to the residual of every instrument.
type Objective struct {
	builder     *CurveBuilder
	instruments []instrument.Instrument
	calc        ValueCalculator
	unit        int
}

// NewObjective shares builder with the matching Jacobian.
func NewObjective(builder *CurveBuilder, instruments []instrument.Instrument, calc ValueCalculator) *Objective {
	return &Objective{builder: builder, instruments: instruments, calc: calc}
}

// Evaluate returns one residual per instrument.
func (o *Objective) Evaluate(params []float64) ([]float64, error) {
	env, err := o.builder.Build(params)
	if err != nil {
		return nil, withUnit(err, o.unit)
	}
	out := make([]float64, len(o.instruments))
	for i, inst := range o.instruments {
		v, err := o.calc.Value(inst, env)
		if err != nil {
			return nil, &ConfigError{Op: "value", Unit: o.unit, Index: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// Jacobian maps parameters to d residual / d parameter, one row per
// instrument and one column per parameter of the builder's layout.
type Jacobian struct {
	builder     *CurveBuilder
	instruments []instrument.Instrument
	sens        SensitivityCalculator
	parallelism int
	unit        int
}

// NewJacobian evaluates up to parallelism rows concurrently. Values below 2
// evaluate rows sequentially.
func NewJacobian(builder *CurveBuilder, instruments []instrument.Instrument, sens SensitivityCalculator, parallelism int) *Jacobian {
	return &Jacobian{builder: builder, instruments: instruments, sens: sens, parallelism: parallelism}
}

// Evaluate returns the Jacobian matrix at params.
func (j *Jacobian) Evaluate(params []float64) (*mat.Dense, error) {
	env, err := j.builder.Build(params)
	if err != nil {
		return nil, withUnit(err, j.unit)
	}
	layout := j.builder.Layout()
	names := layout.CurveNames()
	cols := layout.Size()
	if len(j.instruments) == 0 || cols == 0 {
		return nil, &ConfigError{Op: "jacobian", Unit: j.unit, Index: -1, Err: ErrEmptyUnit}
	}

	rows := make([][]float64, len(j.instruments))
	row := func(i int) error {
		r, err := j.sens.Sensitivity(j.instruments[i], names, env)
		if err != nil {
			return &ConfigError{Op: "sensitivity", Unit: j.unit, Index: i, Err: err}
		}
		if len(r) != cols {
			return &ConfigError{
				Op:    "sensitivity",
				Unit:  j.unit,
				Index: i,
				Err:   fmt.Errorf("got %d sensitivities, want %d: %w", len(r), cols, ErrParameterLength),
			}
		}
		rows[i] = r
		return nil
	}

	if j.parallelism < 2 {
		for i := range j.instruments {
			if err := row(i); err != nil {
				return nil, err
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(j.parallelism)
		for i := range j.instruments {
			g.Go(func() error { return row(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func withUnit(err error, unit int) error {
	if ce, ok := err.(*ConfigError); ok {
		cp := *ce
		cp.Unit = unit
		return &cp
	}
	return err
}
