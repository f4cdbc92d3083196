package cmd

import (
	"github.com/gilchrisn/farmesh/internal/engine"
	"github.com/gilchrisn/farmesh/internal/graphio"
	"github.com/gilchrisn/farmesh/internal/metrics"
	"github.com/gilchrisn/farmesh/internal/partition"
	"github.com/gilchrisn/farmesh/internal/topology"
)

// loggingReporter forwards cache-stat and partition-balance observations
// to the CLI's structured logger, the injected-reporter shape metrics.go
// documents ("each algorithm driver prints them through an injected
// reporter") rather than the engine logging them on its own.
type loggingReporter struct{}

func (loggingReporter) ReportCacheStats(partition, socket int, stats metrics.CacheStats) {
	logger.Debug().
		Int("partition", partition).
		Int("socket", socket).
		Float64("hit_ratio", stats.HitRatio()).
		Msg("cache stats")
}

func (loggingReporter) ReportPartitionBalance(costPerPartition []float64) {
	logger.Info().
		Floats64("cost_per_partition", costPerPartition).
		Float64("skew", metrics.PartitionBalanceSkew(costPerPartition)).
		Msg("partition balance")
}

// loadEngine reads the edge list at path, computes the per-partition
// balance cost vector used for reporting, and builds an Engine[struct{}]
// (unweighted; farmeshctl operates on plain topology, not edge payloads).
func loadEngine(path string, world topology.World, opts engine.Options, undirected bool, v int) (*engine.Engine[struct{}], []float64, error) {
	opts.Reporter = loggingReporter{}

	var eng *engine.Engine[struct{}]
	var err error
	if undirected {
		eng, err = engine.LoadUndirectedFromDirected[struct{}](path, v, graphio.NoPayload{}, world, opts)
	} else {
		eng, err = engine.LoadDirected[struct{}](path, v, graphio.NoPayload{}, world, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	cost := partitionCost(eng)
	return eng, cost, nil
}

// partitionCost recomputes the Σ(out_degree(v)+α) cost per partition
// (spec §3 balance invariant) directly from the built CSR stores, for
// reporting after the fact.
func partitionCost(eng *engine.Engine[struct{}]) []float64 {
	alpha := partition.Alpha(eng.World.P)
	cost := make([]float64, eng.World.P)
	for p := 0; p < eng.World.P; p++ {
		lo, hi := eng.Boundaries.PartOff[p], eng.Boundaries.PartOff[p+1]
		for v := lo; v < hi; v++ {
			neighbors, _ := eng.OutNeighbors(v)
			cost[p] += float64(len(neighbors)) + float64(alpha)
		}
	}
	return cost
}
