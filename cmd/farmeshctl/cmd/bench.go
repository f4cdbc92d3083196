package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/graph"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/engine"
	"github.com/gilchrisn/farmesh/internal/topology"
)

var (
	benchVertices int
	benchUndirect bool
)

var benchCmd = &cobra.Command{
	Use:   "bench <edges-file>",
	Short: "Cross-check CSR adjacency against an independently built gonum graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		world, err := topology.New(cfg.TotalPartitions(), cfg.ComputePartitions(), cfg.Sockets())
		if err != nil {
			return fmt.Errorf("farmeshctl bench: build topology: %w", err)
		}
		eng, _, err := loadEngine(args[0], world, engine.FromConfig(cfg), benchUndirect, benchVertices)
		if err != nil {
			return fmt.Errorf("farmeshctl bench: %w", err)
		}
		defer eng.Close()

		mismatches := crossCheck(eng, benchUndirect)
		logger.Info().
			Int("vertices", eng.V).
			Int("mismatches", mismatches).
			Msg("gonum cross-check complete")
		if mismatches > 0 {
			return fmt.Errorf("farmeshctl bench: %d adjacency mismatches against gonum", mismatches)
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchVertices, "vertices", 0, "vertex count V of the input graph")
	benchCmd.Flags().BoolVar(&benchUndirect, "undirected", false, "mirror each edge's reciprocal (load_undirected_from_directed)")
	_ = benchCmd.MarkFlagRequired("vertices")
}

// crossCheck rebuilds each compute partition's outgoing store as a gonum
// graph and compares it against every OutNeighbors lookup in that
// partition's vertex range, the same cross-check idiom csrstore's
// ToGonumDirected/ToGonumUndirected doc comments describe.
func crossCheck(eng *engine.Engine[struct{}], undirected bool) int {
	mismatches := 0
	for p := 0; p < eng.World.C; p++ {
		lo, hi := eng.Boundaries.PartOff[p], eng.Boundaries.PartOff[p+1]
		var g graph.Graph
		store := eng.OutStore(p)
		if undirected {
			g = csrstore.ToGonumUndirected(store)
		} else {
			g = csrstore.ToGonumDirected(store)
		}

		for v := lo; v < hi; v++ {
			neighbors, ok := eng.OutNeighbors(v)
			if !ok {
				continue
			}
			for _, nb := range neighbors {
				if g.Edge(int64(v), int64(nb.Vertex)) == nil {
					mismatches++
				}
			}
		}
	}
	return mismatches
}
