package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/engine"
	"github.com/gilchrisn/farmesh/internal/partition"
	"github.com/gilchrisn/farmesh/internal/topology"
)

var (
	runVertices   int
	runUndirect   bool
	runAlgo       string
	runSource     uint32
	runIterations int
)

var runCmd = &cobra.Command{
	Use:   "run <edges-file>",
	Short: "Run a canned process_vertices/process_edges algorithm over a loaded graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		world, err := topology.New(cfg.TotalPartitions(), cfg.ComputePartitions(), cfg.Sockets())
		if err != nil {
			return fmt.Errorf("farmeshctl run: build topology: %w", err)
		}
		eng, _, err := loadEngine(args[0], world, engine.FromConfig(cfg), runUndirect, runVertices)
		if err != nil {
			return fmt.Errorf("farmeshctl run: %w", err)
		}
		defer eng.Close()

		switch runAlgo {
		case "pagerank":
			runPageRank(eng, runIterations)
		case "bfs":
			runBFS(eng, runSource)
		default:
			return fmt.Errorf("farmeshctl run: unknown --algo %q (want pagerank|bfs)", runAlgo)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runVertices, "vertices", 0, "vertex count V of the input graph")
	runCmd.Flags().BoolVar(&runUndirect, "undirected", false, "mirror each edge's reciprocal (load_undirected_from_directed)")
	runCmd.Flags().StringVar(&runAlgo, "algo", "pagerank", "algorithm to run: pagerank|bfs")
	runCmd.Flags().Uint32Var(&runSource, "source", 0, "BFS source vertex")
	runCmd.Flags().IntVar(&runIterations, "iterations", 20, "PageRank iteration count")
	_ = runCmd.MarkFlagRequired("vertices")
}

// runPageRank implements the damped PageRank power iteration of spec §8
// scenario 1, driven entirely through ProcessEdges.
func runPageRank(eng *engine.Engine[struct{}], iterations int) {
	const damping = 0.85
	v := eng.V
	rank := engine.AllocVertexArray[float64](v)
	engine.FillVertexArray(rank, 1.0/float64(v))

	active := eng.AllocVertexSubset()
	for i := 0; i < v; i++ {
		active.Set(i)
	}

	for iter := 0; iter < iterations; iter++ {
		next := engine.AllocVertexArray[float64](v)
		engine.ProcessEdges[struct{}, float64, int](eng, active,
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
		logger.Debug().Int("iteration", iter).Msg("pagerank round done")
	}

	for i, r := range gatherGlobal(eng.World, eng.Boundaries, rank) {
		fmt.Printf("%d\t%.6f\n", i, r)
	}
}

// runBFS implements the frontier-driven breadth-first search of spec §8
// scenario 2, also driven through ProcessEdges.
func runBFS(eng *engine.Engine[struct{}], source uint32) {
	const infinity = int32(-1)
	v := eng.V
	dist := engine.AllocVertexArray[int32](v)
	engine.FillVertexArray(dist, infinity)
	dist[source] = 0

	frontier := eng.AllocVertexSubset()
	frontier.Set(int(source))

	for round := 0; ; round++ {
		next := eng.AllocVertexSubset()
		moved := engine.ProcessEdges[struct{}, int32, int](eng, frontier,
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
		logger.Debug().Int("round", round).Int("frontier_size", moved).Msg("bfs round done")
		if moved == 0 {
			break
		}
		frontier = next
	}

	for i, d := range gatherGlobal(eng.World, eng.Boundaries, dist) {
		fmt.Printf("%d\t%d\n", i, d)
	}
}

// gatherGlobal reassembles the full vertex array by calling
// engine.GatherVertexArray once per compute partition (its own slice plus
// every far-memory partition it delegates for) and merging the results,
// mirroring how the original program's root rank would reconstruct the
// global array from each rank's MPI_Send of its local gather.
func gatherGlobal[T any](world topology.World, boundaries *partition.Boundaries, values []T) []T {
	out := make([]T, len(values))
	for q := 0; q < world.C; q++ {
		lo, hi := boundaries.PartOff[q], boundaries.PartOff[q+1]
		delegated := make(map[int][]T)
		for _, f := range world.DelegatedRanges(q) {
			flo, fhi := boundaries.PartOff[f], boundaries.PartOff[f+1]
			delegated[f] = values[flo:fhi]
		}
		partial := engine.GatherVertexArray(world, boundaries, q, values[lo:hi], delegated)
		copy(out[lo:hi], partial[lo:hi])
		for _, f := range world.DelegatedRanges(q) {
			flo, fhi := boundaries.PartOff[f], boundaries.PartOff[f+1]
			copy(out[flo:fhi], partial[flo:fhi])
		}
	}
	return out
}
