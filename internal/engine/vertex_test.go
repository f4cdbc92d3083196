package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/farmesh/internal/graphio"
	"github.com/gilchrisn/farmesh/internal/topology"
)

// TestGatherVertexArrayTwoPhase covers spec §6 "gather_vertex_array": one
// compute partition's view combines its own owned slice with one slice per
// far-memory partition it delegates for, leaving every other vertex's
// entry untouched.
func TestGatherVertexArrayTwoPhase(t *testing.T) {
	const v = 24
	edges := make([][2]uint32, v-1)
	for i := 0; i < v-1; i++ {
		edges[i] = [2]uint32{uint32(i), uint32(i + 1)}
	}
	path := writeUnweighted(t, edges)

	world, err := topology.New(4, 2, 2)
	require.NoError(t, err)
	eng, err := LoadDirected[struct{}](path, v, graphio.NoPayload{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()
	require.Equal(t, []int{2}, world.DelegatedRanges(0))

	const q = 0
	boundaries := eng.Boundaries
	lo, hi := boundaries.PartOff[q], boundaries.PartOff[q+1]
	own := make([]int, hi-lo)
	for i := range own {
		own[i] = int(lo) + i
	}

	delegated := make(map[int][]int)
	for _, f := range world.DelegatedRanges(q) {
		flo, fhi := boundaries.PartOff[f], boundaries.PartOff[f+1]
		slice := make([]int, fhi-flo)
		for i := range slice {
			slice[i] = int(flo) + i
		}
		delegated[f] = slice
	}

	got := GatherVertexArray[int](world, boundaries, q, own, delegated)
	require.Len(t, got, v)

	for i := lo; i < hi; i++ {
		require.Equal(t, int(i), got[i], "owned vertex %d", i)
	}
	for _, f := range world.DelegatedRanges(q) {
		flo, fhi := boundaries.PartOff[f], boundaries.PartOff[f+1]
		for i := flo; i < fhi; i++ {
			require.Equal(t, int(i), got[i], "delegated vertex %d", i)
		}
	}

	// Everything outside q's own and delegated ranges is left
	// zero-valued: q only has its own data to contribute. Checked here
	// over the far-memory partition that compute partition 1 delegates for.
	for _, f := range world.DelegatedRanges(1) {
		flo, fhi := boundaries.PartOff[f], boundaries.PartOff[f+1]
		for i := flo; i < fhi; i++ {
			require.Equal(t, 0, got[i], "non-delegated vertex %d", i)
		}
	}
}
