// Package rootfind solves square nonlinear systems f(x) = 0.
package rootfind

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoConvergence is returned when the iteration budget is exhausted.
	ErrNoConvergence = errors.New("root finder did not converge")
	// ErrSingularJacobian is returned when a Newton step cannot be solved.
	ErrSingularJacobian = errors.New("singular jacobian")
	// ErrDimension is returned when f, J and x disagree in size.
	ErrDimension = errors.New("dimension mismatch")

	// errNonFinite marks a Jacobian, step or iterate holding NaN or Inf.
	errNonFinite = errors.New("non-finite value")
)

// maxHalvings bounds the backtracking line search.
const maxHalvings = 20

// conditionLimit is the LU condition number above which a Jacobian is
// treated as singular.
const conditionLimit = 1e15

// Func evaluates the residual vector at x.
type Func func(x []float64) ([]float64, error)

// JacobianFunc evaluates the Jacobian matrix at x, one row per residual.
type JacobianFunc func(x []float64) (*mat.Dense, error)

// Config controls convergence. A step converges when the residual
// infinity-norm falls below AbsoluteTolerance, or when a full undamped
// Newton step moves x by less than RelativeTolerance·(1+|x|∞).
type Config struct {
	AbsoluteTolerance float64
	RelativeTolerance float64
	MaxIterations     int
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	AbsoluteTolerance: 1e-11,
	RelativeTolerance: 1e-14,
	MaxIterations:     100,
}

// Result is a converged root.
type Result struct {
	Root         []float64
	Residual     []float64
	Iterations   int
	ResidualNorm float64
}

// IterationFunc observes every accepted step. It must not retain the slice.
type IterationFunc func(iteration int, x []float64, residualNorm float64)

// VectorRootFinder finds x with f(x) = 0 starting from x0.
type VectorRootFinder interface {
	Root(ctx context.Context, f Func, j JacobianFunc, x0 []float64) (Result, error)
}

// ConvergenceError reports a root search that ran out of iterations or
// diverged. Diverged is set when the iteration left the region where the
// residuals are finite and regular; Reason then says what broke.
type ConvergenceError struct {
	Iterations   int
	ResidualNorm float64
	Diverged     bool
	Reason       string
}

func (e *ConvergenceError) Error() string {
	if e.Diverged {
		return fmt.Sprintf("%v: diverged at iteration %d (residual %.3e): %s", ErrNoConvergence, e.Iterations, e.ResidualNorm, e.Reason)
	}
	return fmt.Sprintf("%v after %d iterations (residual %.3e)", ErrNoConvergence, e.Iterations, e.ResidualNorm)
}

func (e *ConvergenceError) Unwrap() error { return ErrNoConvergence }

// New returns the named root finder: "newton" (the default) or "broyden".
func New(kind string, cfg Config, observe IterationFunc) (VectorRootFinder, error) {
	switch kind {
	case "", "newton":
		return &NewtonVectorRootFinder{Config: cfg, Observe: observe}, nil
	case "broyden":
		return &BroydenVectorRootFinder{Config: cfg, Observe: observe}, nil
	default:
		return nil, fmt.Errorf("rootfind.New: unknown root finder %q", kind)
	}
}

func norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, math.Inf(1))
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// solveStep returns δ with J·δ = -fx.
func solveStep(jac *mat.Dense, fx []float64) ([]float64, error) {
	r, c := jac.Dims()
	if r != len(fx) || c != len(fx) {
		return nil, fmt.Errorf("jacobian is %dx%d for %d residuals: %w", r, c, len(fx), ErrDimension)
	}
	for i := 0; i < r; i++ {
		if !finite(jac.RawRowView(i)) {
			return nil, fmt.Errorf("jacobian row %d: %w", i, errNonFinite)
		}
	}
	var lu mat.LU
	lu.Factorize(jac)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > conditionLimit {
		return nil, fmt.Errorf("condition number %.3e: %w", cond, ErrSingularJacobian)
	}
	rhs := mat.NewVecDense(len(fx), nil)
	rhs.ScaleVec(-1, mat.NewVecDense(len(fx), append([]float64(nil), fx...)))
	var step mat.VecDense
	if err := lu.SolveVecTo(&step, false, rhs); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrSingularJacobian)
	}
	delta := append([]float64(nil), step.RawVector().Data...)
	if !finite(delta) {
		return nil, fmt.Errorf("newton step: %w", errNonFinite)
	}
	return delta, nil
}

// diverged turns a failed step into a ConvergenceError when the failure
// comes from the path rather than the system: non-finite values anywhere,
// or a Jacobian that only became singular after the iteration moved away
// from the initial guess. It returns nil for structural failures.
func diverged(err error, iter int, moved bool, fx []float64) error {
	if errors.Is(err, errNonFinite) || (moved && errors.Is(err, ErrSingularJacobian)) {
		return &ConvergenceError{Iterations: iter, ResidualNorm: norm(fx), Diverged: true, Reason: err.Error()}
	}
	return nil
}

// lineSearch walks from x along δ, halving the step while the residual norm
// does not decrease. After maxHalvings the last trial point is accepted so
// that the iteration budget, not the line search, decides failure, unless
// that point or its residual is not finite.
func lineSearch(f Func, x, delta []float64, currentNorm float64) (xNew, fNew []float64, lambda float64, err error) {
	lambda = 1
	xNew = make([]float64, len(x))
	for k := 0; ; k++ {
		for i := range x {
			xNew[i] = x[i] + lambda*delta[i]
		}
		fNew, err = f(xNew)
		if err != nil {
			return nil, nil, 0, err
		}
		if len(fNew) != len(x) {
			return nil, nil, 0, fmt.Errorf("%d residuals for %d unknowns: %w", len(fNew), len(x), ErrDimension)
		}
		ok := finite(xNew) && finite(fNew)
		if ok && norm(fNew) < currentNorm {
			return xNew, fNew, lambda, nil
		}
		if k == maxHalvings {
			if !ok {
				return nil, nil, 0, fmt.Errorf("line search: %w", errNonFinite)
			}
			return xNew, fNew, lambda, nil
		}
		lambda /= 2
	}
}

func converged(cfg Config, fx, x, delta []float64, lambda float64) bool {
	if norm(fx) < cfg.AbsoluteTolerance {
		return true
	}
	return lambda == 1 && norm(delta) <= cfg.RelativeTolerance*(1+norm(x))
}

func start(f Func, x0 []float64) (x, fx []float64, err error) {
	x = append([]float64(nil), x0...)
	fx, err = f(x)
	if err != nil {
		return nil, nil, err
	}
	if len(fx) != len(x) {
		return nil, nil, fmt.Errorf("%d residuals for %d unknowns: %w", len(fx), len(x), ErrDimension)
	}
	return x, fx, nil
}
