// Package farmesh re-exports the Edge Engine's Core API (internal/engine)
// at the module root so drivers (process_vertices/process_edges
// algorithms, cmd/farmeshctl, benchmarks) import one stable path instead
// of reaching into internal/engine directly.
package farmesh

import (
	"github.com/gilchrisn/farmesh/internal/bitmap"
	"github.com/gilchrisn/farmesh/internal/config"
	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/engine"
	"github.com/gilchrisn/farmesh/internal/graphio"
	"github.com/gilchrisn/farmesh/internal/metrics"
	"github.com/gilchrisn/farmesh/internal/partition"
	"github.com/gilchrisn/farmesh/internal/topology"
)

// Engine is the running view of a loaded graph: its partitions, caches,
// executor pools, and outgoing/incoming CSR directions.
type Engine[P any] = engine.Engine[P]

// Options configures an Engine at load time; FromConfig derives one from
// a Config loaded from file/env/flags.
type Options = engine.Options

// World describes the cluster topology an Engine is built over: total
// partitions P, compute partitions C, and sockets per node S.
type World = topology.World

// Config is the layered (file/env/flag) configuration source for Options.
type Config = config.Config

// Record is a single neighbor entry returned by OutNeighbors/InNeighbors.
type Record[P any] = csrstore.Record[P]

// Edge is one input edge as read by a Codec during loading.
type Edge[P any] = csrstore.Edge[P]

// Codec (de)serializes an edge payload of type P to/from the edge-list
// wire format consumed by LoadDirected/LoadUndirectedFromDirected.
type Codec[P any] = graphio.Codec[P]

// NoPayload is the Codec for unweighted graphs (P = struct{}).
type NoPayload = graphio.NoPayload

// WeightCodec is the Codec for float64-weighted graphs.
type WeightCodec = graphio.WeightCodec

// Reporter receives cache-hit and partition-balance observations.
type Reporter = metrics.Reporter

// Boundaries holds the partitioner's global and per-socket vertex-range
// cuts, as returned by the partitioner and consumed by GatherVertexArray.
type Boundaries = partition.Boundaries

// DenseSignal and DenseSlot are the dense incoming-direction signal/slot
// pair accepted by ProcessEdges for Core API parity (see DESIGN.md for
// why this engine's routing never invokes them).
type DenseSignal[P any, M any] = engine.DenseSignal[P, M]
type DenseSlot[M any, R any] = engine.DenseSlot[M, R]

// NewWorld validates and builds a cluster topology (spec §2).
var NewWorld = topology.New

// NewConfig builds a Config seeded with the documented defaults.
var NewConfig = config.New

// FromConfig maps a loaded Config onto engine Options.
var FromConfig = engine.FromConfig

// VertexSubset is the active-vertex frontier type threaded through
// ProcessVertices/ProcessEdges (spec §6 "alloc_vertex_subset").
type VertexSubset = bitmap.Bitmap

// Go forbids assigning an uninstantiated generic function to a variable,
// so the Core API's generic entry points are re-exported as thin wrapper
// functions rather than var aliases.

// LoadDirected builds an Engine from a directed edge list (spec §6
// "load_directed").
func LoadDirected[P any](path string, v int, codec Codec[P], world World, opts Options) (*Engine[P], error) {
	return engine.LoadDirected[P](path, v, codec, world, opts)
}

// LoadUndirectedFromDirected builds an Engine from a directed edge list,
// mirroring each edge into its reciprocal so every out-CSR doubles as the
// in-CSR (spec §6 "load_undirected_from_directed").
func LoadUndirectedFromDirected[P any](path string, v int, codec Codec[P], world World, opts Options) (*Engine[P], error) {
	return engine.LoadUndirectedFromDirected[P](path, v, codec, world, opts)
}

// AllocVertexArray returns a V-length array (spec §6 "alloc_vertex_array").
func AllocVertexArray[T any](v int) []T { return engine.AllocVertexArray[T](v) }

// DeallocVertexArray is a no-op kept for Core API source compatibility.
func DeallocVertexArray[T any](array []T) { engine.DeallocVertexArray[T](array) }

// FillVertexArray sets every element of array to val.
func FillVertexArray[T any](array []T, val T) { engine.FillVertexArray[T](array, val) }

// GatherVertexArray assembles compute partition q's view of the full
// V-length array: its own owned slice, then each far-memory partition
// it delegates for (spec §6 "gather_vertex_array").
func GatherVertexArray[T any](world World, boundaries *Boundaries, q int, own []T, delegated map[int][]T) []T {
	return engine.GatherVertexArray[T](world, boundaries, q, own, delegated)
}

// ProcessVertices applies fn to every active vertex and reduces the
// results with combine (spec §6 "process_vertices<R>").
func ProcessVertices[P any, R any](e *Engine[P], active *VertexSubset, zero R, fn func(v uint32) R, combine func(a, b R) R) R {
	return engine.ProcessVertices[P, R](e, active, zero, fn, combine)
}

// ProcessEdges runs the three-phase signal/exchange/slot round over
// every active vertex's outgoing edges (spec §6 "process_edges<R,M>").
func ProcessEdges[P any, M any, R any](
	e *Engine[P],
	active *VertexSubset,
	sparseSignal func(v uint32, emit func(dst uint32, msg M)),
	sparseSlot func(v uint32, msg M, neighbors []Record[P]) R,
	denseSignal DenseSignal[P, M],
	denseSlot DenseSlot[M, R],
	zero R,
	combine func(a, b R) R,
) R {
	return engine.ProcessEdges[P, M, R](e, active, sparseSignal, sparseSlot, denseSignal, denseSlot, zero, combine)
}
