package rootfind

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BroydenVectorRootFinder evaluates the Jacobian once and then applies
// rank-one secant updates. The exact Jacobian is re-evaluated whenever the
// line search fails to reduce the residual.
type BroydenVectorRootFinder struct {
	Config  Config
	Observe IterationFunc
}

func (b *BroydenVectorRootFinder) Root(ctx context.Context, f Func, j JacobianFunc, x0 []float64) (Result, error) {
	x, fx, err := start(f, x0)
	if err != nil {
		return Result{}, err
	}
	if norm(fx) < b.Config.AbsoluteTolerance {
		return Result{Root: x, Residual: fx, ResidualNorm: norm(fx)}, nil
	}

	jac, err := j(x)
	if err != nil {
		return Result{}, err
	}
	for iter := 1; iter <= b.Config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		delta, err := solveStep(jac, fx)
		if err != nil {
			if derr := diverged(err, iter, iter > 1, fx); derr != nil {
				return Result{}, derr
			}
			return Result{}, fmt.Errorf("broyden iteration %d: %w", iter, err)
		}
		xNew, fNew, lambda, err := lineSearch(f, x, delta, norm(fx))
		if err != nil {
			if derr := diverged(err, iter, true, fx); derr != nil {
				return Result{}, derr
			}
			return Result{}, err
		}
		improved := norm(fNew) < norm(fx)

		dx := make([]float64, len(x))
		floats.SubTo(dx, xNew, x)
		df := make([]float64, len(fx))
		floats.SubTo(df, fNew, fx)
		x, fx = xNew, fNew
		if b.Observe != nil {
			b.Observe(iter, x, norm(fx))
		}
		if converged(b.Config, fx, x, delta, lambda) {
			return Result{Root: x, Residual: fx, Iterations: iter, ResidualNorm: norm(fx)}, nil
		}

		if !improved {
			if jac, err = j(x); err != nil {
				return Result{}, err
			}
			continue
		}
		broydenUpdate(jac, dx, df)
	}
	return Result{}, &ConvergenceError{Iterations: b.Config.MaxIterations, ResidualNorm: norm(fx)}
}

// broydenUpdate applies J += (df - J·dx)·dxᵀ / (dxᵀ·dx) in place.
func broydenUpdate(jac *mat.Dense, dx, df []float64) {
	dd := floats.Dot(dx, dx)
	if dd == 0 {
		return
	}
	n := len(dx)
	dxv := mat.NewVecDense(n, dx)
	var jdx mat.VecDense
	jdx.MulVec(jac, dxv)
	u := mat.NewVecDense(n, nil)
	u.SubVec(mat.NewVecDense(n, df), &jdx)
	u.ScaleVec(1/dd, u)
	jac.RankOne(jac, 1, u, dxv)
}
