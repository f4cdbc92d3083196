// Package metrics exposes cache and partition statistics as opaque
// counter handles rather than module-level mutable globals (SPEC_FULL.md
// DESIGN NOTES: "Global cache-statistics counters ... Expose as opaque
// metric handles ... each algorithm driver prints them through an
// injected reporter"). gonum/stat aggregates the raw samples a Reporter
// is handed.
package metrics

import (
	"sync/atomic"

	"gonum.org/v1/gonum/stat"
)

// Counter is a plain atomic add-only counter (spec §5 "Statistics
// counters: plain atomic adds").
type Counter struct {
	v atomic.Int64
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) { c.v.Add(delta) }

// Load returns the current value.
func (c *Counter) Load() int64 { return c.v.Load() }

// CacheStats holds the edge-cache hit/miss counters of spec §4.5.
type CacheStats struct {
	Hit  Counter
	Miss Counter
}

// HitRatio returns hits / (hits+misses), or 0 if there have been no
// lookups yet.
func (s *CacheStats) HitRatio() float64 {
	hit := float64(s.Hit.Load())
	miss := float64(s.Miss.Load())
	if hit+miss == 0 {
		return 0
	}
	return hit / (hit + miss)
}

// Reporter is the injection point algorithm drivers use to observe
// engine statistics without the engine depending on any particular
// logging or metrics backend.
type Reporter interface {
	ReportCacheStats(partition, socket int, stats CacheStats)
	ReportPartitionBalance(costPerPartition []float64)
}

// NopReporter discards every report; the default when a driver doesn't
// care to observe statistics.
type NopReporter struct{}

func (NopReporter) ReportCacheStats(int, int, CacheStats)      {}
func (NopReporter) ReportPartitionBalance(costPerPartition []float64) {}

// PartitionBalanceSkew reports the coefficient of variation of the
// per-partition cost vector (spec §3 "balance invariant": every
// partition's Σ(out_degree(v)+α) should be approximately equal). Used by
// the Partitioner's caller to log how well ComputeGlobal balanced the
// input, via gonum/stat the same way the teacher's coordinate generator
// leans on gonum for numeric aggregation.
func PartitionBalanceSkew(costPerPartition []float64) float64 {
	if len(costPerPartition) == 0 {
		return 0
	}
	mean := stat.Mean(costPerPartition, nil)
	if mean == 0 {
		return 0
	}
	sd := stat.StdDev(costPerPartition, nil)
	return sd / mean
}
