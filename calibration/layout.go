package calibration

import (
	"fmt"
	"slices"
)

// LayoutEntry is the slice of the parameter vector owned by one curve.
type LayoutEntry struct {
	Curve  string
	Offset int
	Length int
}

// ParameterLayout maps curve names to contiguous slices of a flat
// parameter vector, in registration order. It is a value type: Append
// returns a new layout.
type ParameterLayout struct {
	entries []LayoutEntry
	size    int
}

// Append adds a curve after the existing ones.
func (l ParameterLayout) Append(curve string, length int) (ParameterLayout, error) {
	if _, ok := l.Entry(curve); ok {
		return ParameterLayout{}, fmt.Errorf("layout: %q: %w", curve, ErrDuplicateCurve)
	}
	if length < 0 {
		return ParameterLayout{}, fmt.Errorf("layout: %q: negative length %d", curve, length)
	}
	entries := slices.Clone(l.entries)
	entries = append(entries, LayoutEntry{Curve: curve, Offset: l.size, Length: length})
	return ParameterLayout{entries: entries, size: l.size + length}, nil
}

// Size is the total parameter count.
func (l ParameterLayout) Size() int { return l.size }

// Len is the number of curves.
func (l ParameterLayout) Len() int { return len(l.entries) }

// Entries returns the entries in order.
func (l ParameterLayout) Entries() []LayoutEntry { return slices.Clone(l.entries) }

// Entry looks a curve up.
func (l ParameterLayout) Entry(curve string) (LayoutEntry, bool) {
	for _, e := range l.entries {
		if e.Curve == curve {
			return e, true
		}
	}
	return LayoutEntry{}, false
}

// CurveNames returns the curve names in order.
func (l ParameterLayout) CurveNames() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Curve
	}
	return names
}

// Slice returns the curve's parameters from a vector laid out by l.
func (l ParameterLayout) Slice(params []float64, curve string) ([]float64, error) {
	if len(params) != l.size {
		return nil, fmt.Errorf("layout: %d parameters for size %d: %w", len(params), l.size, ErrParameterLength)
	}
	e, ok := l.Entry(curve)
	if !ok {
		return nil, fmt.Errorf("layout: %q: %w", curve, ErrUnknownCurve)
	}
	return params[e.Offset : e.Offset+e.Length], nil
}
