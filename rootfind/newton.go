package rootfind

import (
	"context"
	"fmt"
)

// NewtonVectorRootFinder recomputes the Jacobian at every iteration.
type NewtonVectorRootFinder struct {
	Config  Config
	Observe IterationFunc
}

func (n *NewtonVectorRootFinder) Root(ctx context.Context, f Func, j JacobianFunc, x0 []float64) (Result, error) {
	x, fx, err := start(f, x0)
	if err != nil {
		return Result{}, err
	}
	if norm(fx) < n.Config.AbsoluteTolerance {
		return Result{Root: x, Residual: fx, ResidualNorm: norm(fx)}, nil
	}

	for iter := 1; iter <= n.Config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		jac, err := j(x)
		if err != nil {
			return Result{}, err
		}
		delta, err := solveStep(jac, fx)
		if err != nil {
			if derr := diverged(err, iter, iter > 1, fx); derr != nil {
				return Result{}, derr
			}
			return Result{}, fmt.Errorf("newton iteration %d: %w", iter, err)
		}
		xNew, fNew, lambda, err := lineSearch(f, x, delta, norm(fx))
		if err != nil {
			if derr := diverged(err, iter, true, fx); derr != nil {
				return Result{}, derr
			}
			return Result{}, err
		}
		x, fx = xNew, fNew
		if n.Observe != nil {
			n.Observe(iter, x, norm(fx))
		}
		if converged(n.Config, fx, x, delta, lambda) {
			return Result{Root: x, Residual: fx, Iterations: iter, ResidualNorm: norm(fx)}, nil
		}
	}
	return Result{}, &ConvergenceError{Iterations: n.Config.MaxIterations, ResidualNorm: norm(fx)}
}
