package curve

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolator maps node values to a zero rate at an arbitrary time. Nodes
// are sorted ascending. Outside the node range the zero rate is held flat.
type Interpolator interface {
	Name() string
	Interpolate(nodes, values []float64, t float64) float64
	// Sensitivity returns d Interpolate / d values[k] for every node k.
	Sensitivity(nodes, values []float64, t float64) []float64
}

// Interpolator names accepted by ParseInterpolator.
const (
	LinearZeroName        = "linear"
	LogLinearDiscountName = "log-linear"
)

// ParseInterpolator resolves an interpolator by name. An empty name selects
// linear interpolation on zero rates.
func ParseInterpolator(name string) (Interpolator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LinearZeroName, "linear-zero":
		return LinearZero{}, nil
	case LogLinearDiscountName, "log-linear-df", "loglinear":
		return LogLinearDiscount{}, nil
	default:
		return nil, fmt.Errorf("ParseInterpolator: unknown interpolator %q", name)
	}
}

// bracket locates t among sorted nodes. It returns the left index i and the
// weight w of nodes[i+1]; w is zero when t sits on a node or outside the
// range, in which case i is the node to hold flat.
func bracket(nodes []float64, t float64) (i int, w float64) {
	n := len(nodes)
	if t <= nodes[0] {
		return 0, 0
	}
	if t >= nodes[n-1] {
		return n - 1, 0
	}

	// First node >= t
	idx := sort.SearchFloat64s(nodes, t)
	if nodes[idx] == t {
		return idx, 0
	}
	t1, t2 := nodes[idx-1], nodes[idx]
	if t2 == t1 {
		return idx - 1, 0
	}
	return idx - 1, (t - t1) / (t2 - t1)
}

// LinearZero interpolates zero rates linearly between nodes.
type LinearZero struct{}

func (LinearZero) Name() string { return LinearZeroName }

func (LinearZero) Interpolate(nodes, values []float64, t float64) float64 {
	i, w := bracket(nodes, t)
	if w == 0 {
		return values[i]
	}
	return (1-w)*values[i] + w*values[i+1]
}

func (LinearZero) Sensitivity(nodes, values []float64, t float64) []float64 {
	out := make([]float64, len(nodes))
	i, w := bracket(nodes, t)
	if w == 0 {
		out[i] = 1
		return out
	}
	out[i] = 1 - w
	out[i+1] = w
	return out
}

// LogLinearDiscount interpolates log discount factors linearly, which is
// linear interpolation of z·t between nodes.
type LogLinearDiscount struct{}

func (LogLinearDiscount) Name() string { return LogLinearDiscountName }

func (LogLinearDiscount) Interpolate(nodes, values []float64, t float64) float64 {
	i, w := bracket(nodes, t)
	if w == 0 {
		return values[i]
	}
	rt := (1-w)*values[i]*nodes[i] + w*values[i+1]*nodes[i+1]
	return rt / t
}

func (LogLinearDiscount) Sensitivity(nodes, values []float64, t float64) []float64 {
	out := make([]float64, len(nodes))
	i, w := bracket(nodes, t)
	if w == 0 {
		out[i] = 1
		return out
	}
	out[i] = (1 - w) * nodes[i] / t
	out[i+1] = w * nodes[i+1] / t
	return out
}
