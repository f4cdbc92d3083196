package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/farmesh/internal/engine"
	"github.com/gilchrisn/farmesh/internal/topology"
)

var (
	loadVertices int
	loadUndirect bool
)

var loadCmd = &cobra.Command{
	Use:   "load <edges-file>",
	Short: "Load an edge list, partition it, and report balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		world, err := topology.New(cfg.TotalPartitions(), cfg.ComputePartitions(), cfg.Sockets())
		if err != nil {
			return fmt.Errorf("farmeshctl load: build topology: %w", err)
		}

		eng, cost, err := loadEngine(args[0], world, engine.FromConfig(cfg), loadUndirect, loadVertices)
		if err != nil {
			return fmt.Errorf("farmeshctl load: %w", err)
		}
		defer eng.Close()

		loggingReporter{}.ReportPartitionBalance(cost)
		logger.Info().
			Int("vertices", eng.V).
			Int("compute_partitions", world.C).
			Int("total_partitions", world.P).
			Int("sockets", world.S).
			Msg("engine loaded")
		return nil
	},
}

func init() {
	loadCmd.Flags().IntVar(&loadVertices, "vertices", 0, "vertex count V of the input graph")
	loadCmd.Flags().BoolVar(&loadUndirect, "undirected", false, "mirror each edge's reciprocal (load_undirected_from_directed)")
	_ = loadCmd.MarkFlagRequired("vertices")
}
