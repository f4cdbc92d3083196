package csrstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type noPayload struct{}

func singleSocket(uint32) int { return 0 }

func TestBuildDirectedPath(t *testing.T) {
	// 0 -> 1 -> 2 -> 3
	edges := []Edge[noPayload]{
		{Src: 0, Dst: 1}, {Src: 1, Dst: 2}, {Src: 2, Dst: 3},
	}
	out, in, err := BuildDirected[noPayload](4, 1, singleSocket, edges)
	require.NoError(t, err)

	require.True(t, out.Sockets[0].AdjBitmap.Get(0))
	require.True(t, out.Sockets[0].AdjBitmap.Get(1))
	require.True(t, out.Sockets[0].AdjBitmap.Get(2))
	require.False(t, out.Sockets[0].AdjBitmap.Get(3))

	require.Len(t, out.Sockets[0].Neighbors(0), 1)
	require.Equal(t, uint32(1), out.Sockets[0].Neighbors(0)[0].Vertex)
	require.Len(t, out.Sockets[0].Neighbors(3), 0)

	require.Len(t, in.Sockets[0].Neighbors(3), 1)
	require.Equal(t, uint32(2), in.Sockets[0].Neighbors(3)[0].Vertex)
	require.Len(t, in.Sockets[0].Neighbors(0), 0)
}

func TestBuildUndirectedFromDirectedCycle(t *testing.T) {
	// directed file lists the 4-cycle once: (0,1),(1,2),(2,3),(3,0)
	edges := []Edge[noPayload]{
		{Src: 0, Dst: 1}, {Src: 1, Dst: 2}, {Src: 2, Dst: 3}, {Src: 3, Dst: 0},
	}
	store, err := BuildUndirectedFromDirected[noPayload](4, 1, singleSocket, edges)
	require.NoError(t, err)

	for v := uint32(0); v < 4; v++ {
		require.True(t, store.Sockets[0].AdjBitmap.Get(int(v)), "vertex %d should be active", v)
		require.Len(t, store.Sockets[0].Neighbors(v), 2, "vertex %d degree", v)
	}
}

func TestInvariantIndexMatchesDegree(t *testing.T) {
	edges := []Edge[noPayload]{
		{Src: 0, Dst: 1}, {Src: 0, Dst: 2}, {Src: 1, Dst: 2}, {Src: 1, Dst: 3}, {Src: 2, Dst: 3},
	}
	out, _, err := BuildDirected[noPayload](4, 2, func(v uint32) int { return int(v) % 2 }, edges)
	require.NoError(t, err)

	var total uint64
	for _, s := range out.Sockets {
		total += s.NumEdges()
		for v := 0; v < out.V; v++ {
			n := s.Neighbors(uint32(v))
			lo, hi := s.AdjIndex[v], s.AdjIndex[v+1]
			require.Equal(t, int(hi-lo), len(n))
		}
	}
	require.Equal(t, uint64(len(edges)), total)
}
