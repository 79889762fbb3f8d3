package calibration

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CurveBuildingBlock records where every curve calibrated so far sits in
// the cumulative parameter space of a block.
type CurveBuildingBlock struct {
	layout ParameterLayout
}

// NewCurveBuildingBlock snapshots a cumulative layout.
func NewCurveBuildingBlock(layout ParameterLayout) CurveBuildingBlock {
	return CurveBuildingBlock{layout: layout}
}

// Start returns the offset of the curve's first parameter.
func (b CurveBuildingBlock) Start(curve string) (int, error) {
	e, ok := b.layout.Entry(curve)
	if !ok {
		return 0, fmt.Errorf("building block: %q: %w", curve, ErrUnknownCurve)
	}
	return e.Offset, nil
}

// NumberOfParameters returns the curve's parameter count.
func (b CurveBuildingBlock) NumberOfParameters(curve string) (int, error) {
	e, ok := b.layout.Entry(curve)
	if !ok {
		return 0, fmt.Errorf("building block: %q: %w", curve, ErrUnknownCurve)
	}
	return e.Length, nil
}

// Names lists the curves in parameter order.
func (b CurveBuildingBlock) Names() []string { return b.layout.CurveNames() }

// Entries lists (curve, start, count) in parameter order.
func (b CurveBuildingBlock) Entries() []LayoutEntry { return b.layout.Entries() }

// Size is the total parameter count covered by the block.
func (b CurveBuildingBlock) Size() int { return b.layout.Size() }

// BlockEntry is the building block of one curve together with that curve's
// rows of the inverse block Jacobian: d parameter / d market quote for the
// curve's parameters against every instrument of the block.
type BlockEntry struct {
	Block           CurveBuildingBlock
	InverseJacobian *mat.Dense
}

// BlockBundle maps curve names to their block entries. Matrices are shared,
// callers must not modify them.
type BlockBundle struct {
	entries map[string]BlockEntry
	order   []string
}

// NewBlockBundle returns an empty bundle.
func NewBlockBundle() *BlockBundle {
	return &BlockBundle{entries: make(map[string]BlockEntry)}
}

// Add stores or replaces the entry of a curve.
func (b *BlockBundle) Add(curve string, block CurveBuildingBlock, inverse *mat.Dense) {
	if _, ok := b.entries[curve]; !ok {
		b.order = append(b.order, curve)
	}
	b.entries[curve] = BlockEntry{Block: block, InverseJacobian: inverse}
}

// AddAll copies every entry of other into b.
func (b *BlockBundle) AddAll(other *BlockBundle) {
	for _, name := range other.order {
		e := other.entries[name]
		b.Add(name, e.Block, e.InverseJacobian)
	}
}

// Entry looks a curve up.
func (b *BlockBundle) Entry(curve string) (BlockEntry, bool) {
	e, ok := b.entries[curve]
	return e, ok
}

// Names lists curves in insertion order.
func (b *BlockBundle) Names() []string { return append([]string(nil), b.order...) }

// Len is the number of curves.
func (b *BlockBundle) Len() int { return len(b.order) }
