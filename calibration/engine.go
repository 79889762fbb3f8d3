// Package calibration solves for curve parameters so that calibrating
// instruments reprice their market quotes.
//
// Curves are calibrated in units. A unit is a set of curves solved
// simultaneously by a vector root finder; units of a block are solved in
// sequence, each one seeing the curves of the units before it as known. After
// every unit the Jacobian of all instruments so far against all parameters
// so far is inverted and the rows of the new curves are stored in a
// BlockBundle for market-quote risk.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/metrics"
	"github.com/meenmo/curvecal/multicurve"
	"github.com/meenmo/curvecal/rootfind"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const tracerName = "github.com/meenmo/curvecal/calibration"

// Engine runs calibrations. It holds no per-run state and may be used by
// several goroutines at once.
type Engine struct {
	cfg     config.SolverConfig
	finder  rootfind.VectorRootFinder
	logger  *zap.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records unit and block outcomes.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithTracer sets the tracer. The default comes from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithRootFinder replaces the root finder selected by the configuration.
func WithRootFinder(f rootfind.VectorRootFinder) Option {
	return func(e *Engine) { e.finder = f }
}

// NewEngine validates cfg and applies opts.
func NewEngine(cfg config.SolverConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Result is a calibrated block.
type Result struct {
	RunID       uuid.UUID
	Environment multicurve.Environment
	Bundle      *BlockBundle
	// Layout places every calibrated curve in Parameters.
	Layout     ParameterLayout
	Parameters []float64
	Units      []UnitReport
}

// UnitReport summarizes the root search of one unit.
type UnitReport struct {
	Curves       []string
	Start        int
	Iterations   int
	ResidualNorm float64
}

// blockState is everything accumulated while walking the units of a block.
type blockState struct {
	env         multicurve.Environment
	layout      ParameterLayout
	params      []float64
	instruments []instrument.Instrument
	generators  []CurveGenerator
	bundle      *BlockBundle
	reports     []UnitReport
}

// CalibrateUnit solves one unit on top of known. Generators must already be
// finalized. The returned environment holds known plus the unit's curves;
// the returned parameters are laid out generator by generator.
func (e *Engine) CalibrateUnit(ctx context.Context, instruments []instrument.Instrument, guess []float64, generators []CurveGenerator,
	known multicurve.Environment, calc ValueCalculator, sens SensitivityCalculator) (multicurve.Environment, []float64, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	env, params, _, err := e.calibrateUnit(ctx, e.logger, 0, instruments, guess, generators, known, calc, sens)
	if err != nil {
		return multicurve.Environment{}, nil, err
	}
	return env, params, nil
}

// CalibrateBlock solves units in order and returns the final environment
// with the block bundle. Any failure aborts the block and no environment is
// returned.
func (e *Engine) CalibrateBlock(ctx context.Context, units []Unit, known multicurve.Environment,
	calc ValueCalculator, sens SensitivityCalculator) (multicurve.Environment, *BlockBundle, error) {
	res, err := e.Calibrate(ctx, units, known, calc, sens)
	if err != nil {
		return multicurve.Environment{}, nil, err
	}
	return res.Environment, res.Bundle, nil
}

// Calibrate is CalibrateBlock returning the full result.
func (e *Engine) Calibrate(ctx context.Context, units []Unit, known multicurve.Environment,
	calc ValueCalculator, sens SensitivityCalculator) (*Result, error) {
	runID := uuid.New()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	ctx, span := e.tracer.Start(ctx, "calibration.Block", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.Int("units", len(units)),
	))
	defer span.End()

	log := e.logger.With(zap.String("run_id", runID.String()))
	started := time.Now()
	st, err := e.calibrateBlock(ctx, log, units, known, calc, sens)
	elapsed := time.Since(started)
	if err != nil {
		e.metrics.ObserveBlock(resultLabel(err), elapsed, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("block calibration failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	e.metrics.ObserveBlock(metrics.ResultOK, elapsed, st.layout.Size())
	span.SetAttributes(attribute.Int("parameters", st.layout.Size()))
	log.Info("block calibrated",
		zap.Int("units", len(units)),
		zap.Int("parameters", st.layout.Size()),
		zap.Duration("elapsed", elapsed))

	return &Result{
		RunID:       runID,
		Environment: st.env,
		Bundle:      st.bundle,
		Layout:      st.layout,
		Parameters:  st.params,
		Units:       st.reports,
	}, nil
}

func (e *Engine) calibrateBlock(ctx context.Context, log *zap.Logger, units []Unit, known multicurve.Environment,
	calc ValueCalculator, sens SensitivityCalculator) (*blockState, error) {
	st := &blockState{env: known, bundle: NewBlockBundle()}
	for k, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gens, insts := unit.finalize()
		unitEnv, unitParams, report, err := e.calibrateUnit(ctx, log, k, insts, unit.InitialGuess, gens, st.env, calc, sens)
		if err != nil {
			return nil, err
		}

		report.Start = st.layout.Size()
		for _, g := range gens {
			if st.layout, err = st.layout.Append(g.Name, g.Generator.NumberOfParameters()); err != nil {
				return nil, &ConfigError{Op: "block", Unit: k, Curve: g.Name, Index: -1, Err: err}
			}
		}
		st.params = append(st.params, unitParams...)
		st.instruments = append(st.instruments, insts...)
		st.generators = append(st.generators, gens...)

		inverse, err := e.inverseJacobian(k, known, st, sens)
		if err != nil {
			return nil, err
		}
		block := NewCurveBuildingBlock(st.layout)
		for _, g := range gens {
			entry, _ := st.layout.Entry(g.Name)
			rows := inverse.Slice(entry.Offset, entry.Offset+entry.Length, 0, st.layout.Size())
			st.bundle.Add(g.Name, block, mat.DenseCopyOf(rows))
		}

		st.env = unitEnv
		st.reports = append(st.reports, report)
		log.Info("calibrated unit",
			zap.Int("unit", k),
			zap.Strings("curves", report.Curves),
			zap.Int("start", report.Start),
			zap.Int("parameters", len(unitParams)),
			zap.Int("iterations", report.Iterations),
			zap.Float64("residual_norm", report.ResidualNorm))
	}
	return st, nil
}

// inverseJacobian inverts the Jacobian of every instrument so far against
// every parameter so far, rebuilt from the original known curves.
func (e *Engine) inverseJacobian(unit int, known multicurve.Environment, st *blockState, sens SensitivityCalculator) (*mat.Dense, error) {
	builder, err := NewCurveBuilder(known, st.generators)
	if err != nil {
		return nil, withUnit(err, unit)
	}
	jac := NewJacobian(builder, st.instruments, sens, e.cfg.Parallelism)
	jac.unit = unit
	full, err := jac.Evaluate(st.params)
	if err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(full); err != nil {
		return nil, &SingularJacobianError{
			Unit:   unit,
			Curves: builder.Layout().CurveNames(),
			Err:    fmt.Errorf("block jacobian: %v: %w", err, ErrSingularJacobian),
		}
	}
	return &inv, nil
}

func (e *Engine) calibrateUnit(ctx context.Context, log *zap.Logger, unit int, instruments []instrument.Instrument, guess []float64,
	generators []CurveGenerator, known multicurve.Environment, calc ValueCalculator, sens SensitivityCalculator) (multicurve.Environment, []float64, UnitReport, error) {
	builder, err := e.validateUnit(unit, instruments, guess, generators, known)
	if err != nil {
		return multicurve.Environment{}, nil, UnitReport{}, err
	}
	names := builder.Layout().CurveNames()
	report := UnitReport{Curves: names}

	ctx, span := e.tracer.Start(ctx, "calibration.Unit", trace.WithAttributes(
		attribute.Int("unit", unit),
		attribute.StringSlice("curves", names),
		attribute.Int("parameters", len(guess)),
	))
	defer span.End()

	objective := NewObjective(builder, instruments, calc)
	objective.unit = unit
	jacobian := NewJacobian(builder, instruments, sens, e.cfg.Parallelism)
	jacobian.unit = unit

	finder := e.finder
	if finder == nil {
		finder, err = rootfind.New(e.cfg.RootFinder, rootfind.Config{
			AbsoluteTolerance: e.cfg.AbsoluteTolerance,
			RelativeTolerance: e.cfg.RelativeTolerance,
			MaxIterations:     e.cfg.MaxIterations,
		}, func(iteration int, _ []float64, residualNorm float64) {
			log.Debug("root finder iteration",
				zap.Int("unit", unit),
				zap.Int("iteration", iteration),
				zap.Float64("residual_norm", residualNorm))
		})
		if err != nil {
			return multicurve.Environment{}, nil, report, &ConfigError{Op: "solve", Unit: unit, Index: -1, Err: err}
		}
	}

	res, err := finder.Root(ctx, objective.Evaluate, jacobian.Evaluate, guess)
	if err != nil {
		err = e.unitError(unit, names, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return multicurve.Environment{}, nil, report, err
	}
	span.SetAttributes(attribute.Int("iterations", res.Iterations), attribute.Float64("residual_norm", res.ResidualNorm))

	env, err := builder.Build(res.Root)
	if err != nil {
		return multicurve.Environment{}, nil, report, withUnit(err, unit)
	}
	report.Iterations = res.Iterations
	report.ResidualNorm = res.ResidualNorm
	e.metrics.ObserveUnit(res.Iterations, res.ResidualNorm)
	return env, res.Root, report, nil
}

// validateUnit checks the unit before any root finding.
func (e *Engine) validateUnit(unit int, instruments []instrument.Instrument, guess []float64,
	generators []CurveGenerator, known multicurve.Environment) (*CurveBuilder, error) {
	if len(generators) == 0 {
		return nil, &ConfigError{Op: "validate", Unit: unit, Index: -1, Err: ErrEmptyUnit}
	}
	inUnit := make(map[string]bool, len(generators))
	for _, g := range generators {
		if known.Has(g.Name) || inUnit[g.Name] {
			return nil, &ConfigError{Op: "validate", Unit: unit, Curve: g.Name, Index: -1, Err: ErrDuplicateCurve}
		}
		inUnit[g.Name] = true
	}
	builder, err := NewCurveBuilder(known, generators)
	if err != nil {
		return nil, withUnit(err, unit)
	}
	size := builder.Layout().Size()
	if size == 0 {
		return nil, &ConfigError{Op: "validate", Unit: unit, Index: -1, Err: ErrEmptyUnit}
	}
	if len(instruments) != size {
		return nil, &ConfigError{
			Op:    "validate",
			Unit:  unit,
			Index: -1,
			Err:   fmt.Errorf("%d instruments for %d parameters: %w", len(instruments), size, ErrNotSquare),
		}
	}
	if len(guess) != size {
		return nil, &ConfigError{
			Op:    "validate",
			Unit:  unit,
			Index: -1,
			Err:   fmt.Errorf("initial guess has %d values for %d parameters: %w", len(guess), size, ErrParameterLength),
		}
	}
	for i, inst := range instruments {
		for _, name := range inst.Curves() {
			if !known.Has(name) && !inUnit[name] {
				return nil, &ConfigError{Op: "validate", Unit: unit, Curve: name, Index: i, Err: ErrUnknownCurve}
			}
		}
	}
	return builder, nil
}

func (e *Engine) unitError(unit int, curves []string, err error) error {
	var ce *rootfind.ConvergenceError
	switch {
	case errors.As(err, &ce):
		return &ConvergenceError{Unit: unit, Curves: curves, Iterations: ce.Iterations, ResidualNorm: ce.ResidualNorm,
			Diverged: ce.Diverged, Err: err}
	case errors.Is(err, ErrSingularJacobian):
		return &SingularJacobianError{Unit: unit, Curves: curves, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("calibration unit %d: %w", unit, err)
	default:
		return err
	}
}

func resultLabel(err error) string {
	var cfgErr *ConfigError
	switch {
	case errors.Is(err, ErrNoConvergence):
		return metrics.ResultNoConvergence
	case errors.Is(err, ErrSingularJacobian):
		return metrics.ResultSingular
	case errors.As(err, &cfgErr):
		return metrics.ResultConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultError
	}
}
