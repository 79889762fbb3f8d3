package curve

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoNodes is returned when an interpolated curve is built without nodes.
var ErrNoNodes = errors.New("interpolated curve needs at least one node")

// Interpolated is a zero-rate curve interpolated between nodes. Node values
// are the curve parameters, given in the caller's order; nodes need not be
// sorted. An optional anchor node carries a fixed zero value and is not a
// parameter.
type Interpolated struct {
	name   string
	interp Interpolator
	nodes  []float64 // sorted
	values []float64 // aligned with nodes
	param  []int     // param[k] is the parameter index of nodes[k], -1 for the anchor
	nParam int
}

// NewInterpolated builds a curve from node times and their zero rates.
func NewInterpolated(name string, nodes, values []float64, interp Interpolator) (*Interpolated, error) {
	return newInterpolated(name, nodes, values, interp, nil)
}

// NewInterpolatedAnchor builds a curve whose zero rate is pinned to 0 at the
// anchor time in addition to the parameter nodes.
func NewInterpolatedAnchor(name string, nodes, values []float64, anchor float64, interp Interpolator) (*Interpolated, error) {
	return newInterpolated(name, nodes, values, interp, &anchor)
}

func newInterpolated(name string, nodes, values []float64, interp Interpolator, anchor *float64) (*Interpolated, error) {
	if len(nodes) != len(values) {
		return nil, fmt.Errorf("NewInterpolated %s: %d nodes but %d values", name, len(nodes), len(values))
	}
	if len(nodes) == 0 && anchor == nil {
		return nil, ErrNoNodes
	}
	if interp == nil {
		interp = LinearZero{}
	}

	type point struct {
		t, v float64
		p    int
	}
	points := make([]point, 0, len(nodes)+1)
	for i := range nodes {
		points = append(points, point{t: nodes[i], v: values[i], p: i})
	}
	if anchor != nil {
		points = append(points, point{t: *anchor, v: 0, p: -1})
	}
	// Stable so that coincident nodes keep the caller's order.
	sort.SliceStable(points, func(i, j int) bool { return points[i].t < points[j].t })

	c := &Interpolated{
		name:   name,
		interp: interp,
		nodes:  make([]float64, len(points)),
		values: make([]float64, len(points)),
		param:  make([]int, len(points)),
		nParam: len(nodes),
	}
	for k, pt := range points {
		c.nodes[k], c.values[k], c.param[k] = pt.t, pt.v, pt.p
	}
	return c, nil
}

func (c *Interpolated) Name() string            { return c.name }
func (c *Interpolated) NumberOfParameters() int { return c.nParam }

// Nodes returns a copy of the sorted node times, anchor included.
func (c *Interpolated) Nodes() []float64 { return append([]float64(nil), c.nodes...) }

func (c *Interpolated) ZeroRate(t float64) float64 {
	return c.interp.Interpolate(c.nodes, c.values, t)
}

func (c *Interpolated) DiscountFactor(t float64) float64 {
	return discountFactor(c.ZeroRate(t), t)
}

func (c *Interpolated) ZeroRateSensitivity(t float64) []Sensitivity {
	weights := c.interp.Sensitivity(c.nodes, c.values, t)
	out := make([]float64, c.nParam)
	for k, w := range weights {
		if p := c.param[k]; p >= 0 {
			out[p] += w
		}
	}
	return []Sensitivity{{Curve: c.name, Values: out}}
}
