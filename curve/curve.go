// Package curve holds the interest-rate curves produced by calibration.
//
// Every curve is a continuously compounded zero-rate function of time in
// years (ACT/365F from the curve date). Discount factors follow
// D(t) = exp(-z(t)·t). Curves are immutable once built and safe for
// concurrent reads.
package curve

import "math"

// Curve is a calibrated interest-rate curve.
type Curve interface {
	Name() string
	// ZeroRate returns the continuously compounded zero rate at time t.
	ZeroRate(t float64) float64
	// DiscountFactor returns exp(-ZeroRate(t)·t).
	DiscountFactor(t float64) float64
	// NumberOfParameters is the count of parameters owned by this curve.
	NumberOfParameters() int
	// ZeroRateSensitivity returns dz(t)/dp attributed per curve name. The
	// first entry always belongs to the curve itself and has
	// NumberOfParameters values; curves built on top of other curves append
	// the entries of their underlyings.
	ZeroRateSensitivity(t float64) []Sensitivity
}

// Sensitivity is the derivative of a quantity with respect to the
// parameters of one named curve.
type Sensitivity struct {
	Curve  string
	Values []float64
}

func discountFactor(z, t float64) float64 {
	return math.Exp(-z * t)
}

// MergeSensitivities sums entries that share a curve name, keeping the order
// in which names first appear.
func MergeSensitivities(list []Sensitivity) []Sensitivity {
	out := make([]Sensitivity, 0, len(list))
	index := make(map[string]int, len(list))
	for _, s := range list {
		i, ok := index[s.Curve]
		if !ok {
			index[s.Curve] = len(out)
			out = append(out, Sensitivity{Curve: s.Curve, Values: append([]float64(nil), s.Values...)})
			continue
		}
		dst := out[i].Values
		if len(s.Values) > len(dst) {
			dst = append(dst, make([]float64, len(s.Values)-len(dst))...)
		}
		for k, v := range s.Values {
			dst[k] += v
		}
		out[i].Values = dst
	}
	return out
}
