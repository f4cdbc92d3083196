package engine

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/graphio"
	"github.com/gilchrisn/farmesh/internal/topology"
)

func writeUnweighted(t *testing.T, edges [][2]uint32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edges.bin")
	raw := make([]csrstore.Edge[struct{}], len(edges))
	for i, e := range edges {
		raw[i] = csrstore.Edge[struct{}]{Src: e[0], Dst: e[1]}
	}
	require.NoError(t, graphio.WriteEdges(path, raw, graphio.NoPayload{}))
	return path
}

func writeWeighted(t *testing.T, edges []csrstore.Edge[float64]) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edges.bin")
	require.NoError(t, graphio.WriteEdges(path, edges, graphio.WeightCodec{}))
	return path
}

func testOptions() Options {
	return Options{Logger: zerolog.Nop()}
}

// TestRingPageRankConverges covers spec §8 scenario 1: an 8-vertex ring,
// 2 compute partitions, no far-memory, PageRank converging to ≈0.125
// per vertex.
func TestRingPageRankConverges(t *testing.T) {
	const v = 8
	edges := make([][2]uint32, v)
	for i := 0; i < v; i++ {
		edges[i] = [2]uint32{uint32(i), uint32((i + 1) % v)}
	}
	path := writeUnweighted(t, edges)

	world, err := topology.New(2, 2, 2)
	require.NoError(t, err)
	eng, err := LoadUndirectedFromDirected[struct{}](path, v, graphio.NoPayload{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()

	rank := make([]float64, v)
	FillVertexArray(rank, 1.0/float64(v))

	active := eng.AllocVertexSubset()
	for i := 0; i < v; i++ {
		active.Set(i)
	}

	const damping = 0.85
	for iter := 0; iter < 60; iter++ {
		next := make([]float64, v)
		ProcessEdges[struct{}, float64, int](eng, active,
			func(src uint32, emit func(dst uint32, msg float64)) {
				neighbors, ok := eng.OutNeighbors(src)
				if !ok || len(neighbors) == 0 {
					return
				}
				share := rank[src] / float64(len(neighbors))
				for _, nb := range neighbors {
					emit(nb.Vertex, share)
				}
			},
			func(dst uint32, msg float64, _ []csrstore.Record[struct{}]) int {
				next[dst] += msg
				return 1
			},
			nil, nil, 0, func(a, b int) int { return a + b })

		for i := range rank {
			rank[i] = (1-damping)/float64(v) + damping*next[i]
		}
	}

	for i, r := range rank {
		require.InDelta(t, 0.125, r, 1e-6, "vertex %d", i)
	}
}

// TestDirectedPathBFS covers spec §8 scenario 2: BFS distances [0,1,2,3]
// over a directed path 0->1->2->3, single compute partition.
func TestDirectedPathBFS(t *testing.T) {
	const v = 4
	path := writeUnweighted(t, [][2]uint32{{0, 1}, {1, 2}, {2, 3}})

	world, err := topology.New(1, 1, 1)
	require.NoError(t, err)
	eng, err := LoadDirected[struct{}](path, v, graphio.NoPayload{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()

	const infinity = int32(-1)
	dist := make([]int32, v)
	FillVertexArray(dist, infinity)
	dist[0] = 0

	frontier := eng.AllocVertexSubset()
	frontier.Set(0)

	for {
		next := eng.AllocVertexSubset()
		moved := ProcessEdges[struct{}, int32, int](eng, frontier,
			func(src uint32, emit func(dst uint32, msg int32)) {
				neighbors, ok := eng.OutNeighbors(src)
				if !ok {
					return
				}
				for _, nb := range neighbors {
					emit(nb.Vertex, dist[src]+1)
				}
			},
			func(dst uint32, msg int32, _ []csrstore.Record[struct{}]) int {
				if dist[dst] != infinity {
					return 0
				}
				dist[dst] = msg
				next.Set(int(dst))
				return 1
			},
			nil, nil, 0, func(a, b int) int { return a + b })
		if moved == 0 {
			break
		}
		frontier = next
	}

	require.Equal(t, []int32{0, 1, 2, 3}, dist)
}

// TestWeightedSSSP covers spec §8 scenario 3: weighted single-source
// shortest paths along 0-(1)->1-(2)->2-(3)->3 converging to [0,1,3,6].
func TestWeightedSSSP(t *testing.T) {
	const v = 4
	path := writeWeighted(t, []csrstore.Edge[float64]{
		{Src: 0, Dst: 1, Payload: 1},
		{Src: 1, Dst: 2, Payload: 2},
		{Src: 2, Dst: 3, Payload: 3},
	})

	world, err := topology.New(1, 1, 1)
	require.NoError(t, err)
	eng, err := LoadDirected[float64](path, v, graphio.WeightCodec{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()

	const infinity = math.MaxFloat64
	dist := make([]float64, v)
	FillVertexArray(dist, infinity)
	dist[0] = 0

	active := eng.AllocVertexSubset()
	active.Set(0)

	for {
		next := eng.AllocVertexSubset()
		moved := ProcessEdges[float64, float64, int](eng, active,
			func(src uint32, emit func(dst uint32, msg float64)) {
				neighbors, ok := eng.OutNeighbors(src)
				if !ok {
					return
				}
				for _, nb := range neighbors {
					emit(nb.Vertex, dist[src]+nb.Payload)
				}
			},
			func(dst uint32, msg float64, _ []csrstore.Record[float64]) int {
				if msg >= dist[dst] {
					return 0
				}
				dist[dst] = msg
				next.Set(int(dst))
				return 1
			},
			nil, nil, 0, func(a, b int) int { return a + b })
		if moved == 0 {
			break
		}
		active = next
	}

	require.Equal(t, []float64{0, 1, 3, 6}, dist)
}

// TestTwoTrianglesConnectedComponents covers spec §8 scenario 4: label
// propagation over two disjoint triangles settles on [0,0,0,3,3,3].
func TestTwoTrianglesConnectedComponents(t *testing.T) {
	const v = 6
	path := writeUnweighted(t, [][2]uint32{
		{0, 1}, {1, 2}, {2, 0},
		{3, 4}, {4, 5}, {5, 3},
	})

	world, err := topology.New(1, 1, 2)
	require.NoError(t, err)
	eng, err := LoadUndirectedFromDirected[struct{}](path, v, graphio.NoPayload{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()

	label := make([]uint32, v)
	for i := range label {
		label[i] = uint32(i)
	}
	active := eng.AllocVertexSubset()
	for i := 0; i < v; i++ {
		active.Set(i)
	}

	for iter := 0; iter < v; iter++ {
		next := make([]uint32, v)
		copy(next, label)
		changed := ProcessEdges[struct{}, uint32, int](eng, active,
			func(src uint32, emit func(dst uint32, msg uint32)) {
				neighbors, ok := eng.OutNeighbors(src)
				if !ok {
					return
				}
				for _, nb := range neighbors {
					emit(nb.Vertex, label[src])
				}
			},
			func(dst uint32, msg uint32, _ []csrstore.Record[struct{}]) int {
				if msg < next[dst] {
					next[dst] = msg
					return 1
				}
				return 0
			},
			nil, nil, 0, func(a, b int) int { return a + b })
		label = next
		if changed == 0 {
			break
		}
	}

	require.Equal(t, []uint32{0, 0, 0, 3, 3, 3}, label)
}

// TestLoadUndirectedFromDirectedCycleDegrees covers spec §8 scenario 5:
// every vertex of an undirected 4-cycle ends up with out_degree ==
// in_degree == 2, and Transpose on a symmetric engine is a no-op.
func TestLoadUndirectedFromDirectedCycleDegrees(t *testing.T) {
	const v = 4
	path := writeUnweighted(t, [][2]uint32{{0, 1}, {1, 2}, {2, 3}, {3, 0}})

	world, err := topology.New(1, 1, 1)
	require.NoError(t, err)
	eng, err := LoadUndirectedFromDirected[struct{}](path, v, graphio.NoPayload{}, world, testOptions())
	require.NoError(t, err)
	defer eng.Close()

	for i := 0; i < v; i++ {
		neighbors, ok := eng.OutNeighbors(uint32(i))
		require.True(t, ok)
		require.Len(t, neighbors, 2, "vertex %d", i)
	}

	require.NoError(t, eng.Transpose())
	for i := 0; i < v; i++ {
		neighbors, ok := eng.OutNeighbors(uint32(i))
		require.True(t, ok)
		require.Len(t, neighbors, 2, "vertex %d after transpose", i)
	}
}

// TestDelegationShortCircuitsThroughCache covers spec §8 scenario 6: a
// directed chain spread across 2 compute and 2 far-memory partitions.
// BFS distances along the chain must come out correct whether a hop
// crosses into a far-memory partition's range (served through its
// delegate's cache tier) or stays within a compute partition's own CSR.
func TestDelegationShortCircuitsThroughCache(t *testing.T) {
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

	require.Equal(t, 2, world.NumFarMemory())

	const infinity = int32(-1)
	dist := make([]int32, v)
	FillVertexArray(dist, infinity)
	dist[0] = 0

	frontier := eng.AllocVertexSubset()
	frontier.Set(0)

	for {
		next := eng.AllocVertexSubset()
		moved := ProcessEdges[struct{}, int32, int](eng, frontier,
			func(src uint32, emit func(dst uint32, msg int32)) {
				neighbors, ok := eng.OutNeighbors(src)
				if !ok {
					return
				}
				for _, nb := range neighbors {
					emit(nb.Vertex, dist[src]+1)
				}
			},
			func(dst uint32, msg int32, _ []csrstore.Record[struct{}]) int {
				if dist[dst] != infinity {
					return 0
				}
				dist[dst] = msg
				next.Set(int(dst))
				return 1
			},
			nil, nil, 0, func(a, b int) int { return a + b })
		if moved == 0 {
			break
		}
		frontier = next
	}

	want := make([]int32, v)
	for i := range want {
		want[i] = int32(i)
	}
	require.Equal(t, want, dist)
}
