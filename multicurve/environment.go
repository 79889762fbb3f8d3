// Package multicurve holds the immutable registry of named curves that
// calibration builds on and produces.
package multicurve

import (
	"errors"
	"fmt"
	"maps"

	"github.com/meenmo/curvecal/curve"
)

var (
	// ErrUnknownCurve is returned when a curve name is not in the environment.
	ErrUnknownCurve = errors.New("unknown curve")
	// ErrDuplicateCurve is returned by strict merges on a name collision.
	ErrDuplicateCurve = errors.New("duplicate curve")
)

// Environment is an immutable snapshot of named curves. The zero value is an
// empty environment. Every method that adds curves returns a new
// Environment and leaves the receiver untouched, so an Environment can be
// shared between goroutines without locking.
type Environment struct {
	curves map[string]curve.Curve
	order  []string
}

// New builds an environment from curves, rejecting duplicate names.
func New(curves ...curve.Curve) (Environment, error) {
	var env Environment
	for _, c := range curves {
		if env.Has(c.Name()) {
			return Environment{}, fmt.Errorf("multicurve.New: %q: %w", c.Name(), ErrDuplicateCurve)
		}
		env = env.With(c)
	}
	return env, nil
}

// Curve looks a curve up by name.
func (e Environment) Curve(name string) (curve.Curve, error) {
	c, ok := e.curves[name]
	if !ok {
		return nil, fmt.Errorf("curve %q: %w", name, ErrUnknownCurve)
	}
	return c, nil
}

// Has reports whether a curve with this name is present.
func (e Environment) Has(name string) bool {
	_, ok := e.curves[name]
	return ok
}

// Len is the number of curves.
func (e Environment) Len() int { return len(e.order) }

// Names returns curve names in insertion order.
func (e Environment) Names() []string {
	return append([]string(nil), e.order...)
}

// NumberOfParameters returns the parameter count of the named curve.
func (e Environment) NumberOfParameters(name string) (int, error) {
	c, err := e.Curve(name)
	if err != nil {
		return 0, err
	}
	return c.NumberOfParameters(), nil
}

// DiscountFactor is a convenience for Curve(name).DiscountFactor(t).
func (e Environment) DiscountFactor(name string, t float64) (float64, error) {
	c, err := e.Curve(name)
	if err != nil {
		return 0, err
	}
	return c.DiscountFactor(t), nil
}

// With returns a copy with the curves added. A curve whose name is already
// present replaces the old one in place.
func (e Environment) With(curves ...curve.Curve) Environment {
	next := Environment{
		curves: make(map[string]curve.Curve, len(e.curves)+len(curves)),
		order:  make([]string, len(e.order), len(e.order)+len(curves)),
	}
	maps.Copy(next.curves, e.curves)
	copy(next.order, e.order)
	for _, c := range curves {
		if _, ok := next.curves[c.Name()]; !ok {
			next.order = append(next.order, c.Name())
		}
		next.curves[c.Name()] = c
	}
	return next
}

// Merge returns the union of both environments. Curves in other win on a
// name collision.
func (e Environment) Merge(other Environment) Environment {
	add := make([]curve.Curve, 0, other.Len())
	for _, name := range other.order {
		add = append(add, other.curves[name])
	}
	return e.With(add...)
}

// MergeStrict is Merge but fails with ErrDuplicateCurve on any collision.
func (e Environment) MergeStrict(other Environment) (Environment, error) {
	for _, name := range other.order {
		if e.Has(name) {
			return Environment{}, fmt.Errorf("multicurve.MergeStrict: %q: %w", name, ErrDuplicateCurve)
		}
	}
	return e.Merge(other), nil
}
