package calibration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meenmo/curvecal/multicurve"
	"github.com/meenmo/curvecal/rootfind"
)

var (
	// ErrParameterLength is returned when a parameter vector or sensitivity
	// row does not match the layout.
	ErrParameterLength = errors.New("parameter vector length mismatch")
	// ErrNotSquare is returned when a unit's instrument count differs from
	// its parameter count.
	ErrNotSquare = errors.New("instrument count does not match parameter count")
	// ErrEmptyUnit is returned for units without curves or parameters.
	ErrEmptyUnit = errors.New("empty calibration unit")

	ErrUnknownCurve     = multicurve.ErrUnknownCurve
	ErrDuplicateCurve   = multicurve.ErrDuplicateCurve
	ErrNoConvergence    = rootfind.ErrNoConvergence
	ErrSingularJacobian = rootfind.ErrSingularJacobian
)

// ConfigError reports an inconsistent calibration setup. Curve and Index
// are set when the problem is tied to a curve or an instrument; Index is -1
// otherwise.
type ConfigError struct {
	Op    string
	Unit  int
	Curve string
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "calibration %s: unit %d", e.Op, e.Unit)
	if e.Curve != "" {
		fmt.Fprintf(&b, ", curve %q", e.Curve)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ", instrument %d", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConvergenceError reports a unit whose root search ran out of iterations
// or diverged, typically because the quotes admit no curve.
type ConvergenceError struct {
	Unit         int
	Curves       []string
	Iterations   int
	ResidualNorm float64
	Diverged     bool
	Err          error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("calibration unit %d %v: %v", e.Unit, e.Curves, e.Err)
}

func (e *ConvergenceError) Unwrap() error { return e.Err }

// SingularJacobianError reports a unit whose Jacobian, or the block
// Jacobian after it, could not be inverted.
type SingularJacobianError struct {
	Unit   int
	Curves []string
	Err    error
}

func (e *SingularJacobianError) Error() string {
	return fmt.Sprintf("calibration unit %d %v: %v", e.Unit, e.Curves, e.Err)
}

func (e *SingularJacobianError) Unwrap() error {
	if e.Err == nil {
		return ErrSingularJacobian
	}
	return e.Err
}
