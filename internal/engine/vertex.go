package engine

import (
	"github.com/gilchrisn/farmesh/internal/bitmap"
	"github.com/gilchrisn/farmesh/internal/partition"
	"github.com/gilchrisn/farmesh/internal/topology"
)

// AllocVertexArray returns a V-length array (spec §6
// "alloc_vertex_array<T>"). These are free functions, not Engine
// methods: Go forbids a method from carrying a type parameter beyond
// its receiver's, and a vertex array's element type T is independent of
// an Engine[P]'s edge-payload type P.
func AllocVertexArray[T any](v int) []T {
	return make([]T, v)
}

// DeallocVertexArray is a no-op: Go arrays are garbage collected. Kept
// so drivers written against the Core API (spec §6) compile unchanged
// against this engine.
func DeallocVertexArray[T any](array []T) {}

// FillVertexArray sets every element of array to val (spec §6
// "fill_vertex_array<T>").
func FillVertexArray[T any](array []T, val T) {
	for i := range array {
		array[i] = val
	}
}

// AllocVertexSubset returns a fresh, all-clear bitmap over [0, V) (spec
// §6 "alloc_vertex_subset").
func (e *Engine[P]) AllocVertexSubset() *bitmap.Bitmap {
	return bitmap.New(e.V)
}

// GatherVertexArray assembles compute partition q's view of the full
// V-length array (spec §6 "gather_vertex_array"), the way one rank of
// the original MPI program would gather its own locally-known data
// before a collective all-gather: every entry outside q's own and
// delegated ranges is left zero-valued, since this call only has q's
// data to contribute.
//
// This is a genuine two-phase collection rather than one uniform loop
// over every partition: phase one places q's own slice at
// [part_off[q], part_off[q+1]); phase two places, for each far-memory
// partition f that q delegates for, delegated[f] at
// [part_off[f], part_off[f+1]). own and every delegated[f] must be
// sized exactly to that range.
func GatherVertexArray[T any](world topology.World, boundaries *partition.Boundaries, q int, own []T, delegated map[int][]T) []T {
	v := int(boundaries.PartOff[len(boundaries.PartOff)-1])
	out := make([]T, v)

	lo := boundaries.PartOff[q]
	copy(out[lo:], own)

	for _, f := range world.DelegatedRanges(q) {
		flo := boundaries.PartOff[f]
		copy(out[flo:], delegated[f])
	}
	return out
}
