package engine

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/farmesh/internal/bitmap"
	"github.com/gilchrisn/farmesh/internal/cache"
	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/executor"
	"github.com/gilchrisn/farmesh/internal/message"
)

// wordRanges splits the word-aligned span covering [loVertex, hiVertex)
// evenly across numSockets executor.SocketRanges. This is a work-
// distribution split only: it has no bearing on which CSR socket stores
// a vertex's adjacency (that's fixed at construction by the
// Partitioner's LocalOffs), so an arbitrary even split is as valid here
// as any other (spec §5 "All parallelism inside process_vertices /
// process_edges is fork-join with work stealing").
func wordRanges(loVertex, hiVertex uint32, numSockets int) []executor.SocketRange {
	if hiVertex <= loVertex || numSockets <= 0 {
		return nil
	}
	loWord := int(loVertex) / bitmap.BasicChunk
	hiWord := (int(hiVertex) + bitmap.BasicChunk - 1) / bitmap.BasicChunk
	total := hiWord - loWord
	per := total / numSockets
	if per == 0 {
		per = 1
	}
	var out []executor.SocketRange
	cur := loWord
	for s := 0; s < numSockets && cur < hiWord; s++ {
		end := cur + per
		if s == numSockets-1 || end > hiWord {
			end = hiWord
		}
		out = append(out, executor.SocketRange{Socket: s, LoWord: cur, HiWord: end})
		cur = end
	}
	return out
}

// ProcessVertices implements spec §6 "process_vertices<R>": fn is
// applied to every active vertex in the local compute partition's own
// range and every far-memory range it delegates for, reduced with
// combine starting from zero. Because this Engine already represents
// the whole cluster's global view in one process, the result is the
// final globally-reduced value — no separate all-reduce step is needed
// (spec §4.6).
func ProcessVertices[P any, R any](e *Engine[P], active *bitmap.Bitmap, zero R, fn func(v uint32) R, combine func(a, b R) R) R {
	total := zero
	for q := 0; q < e.World.C; q++ {
		lo, hi := e.Boundaries.PartOff[q], e.Boundaries.PartOff[q+1]
		// A range with no active vertex is skipped without walking it.
		if active.PopcountRange(int(lo), int(hi)) > 0 {
			total = combine(total, executor.RunReduce(e.pools[q], wordRanges(lo, hi, e.World.S), zero, func(threadIdx, word int) R {
				acc := zero
				active.ScanWord(word, func(v int) {
					if uint32(v) < lo || uint32(v) >= hi {
						return
					}
					acc = combine(acc, fn(uint32(v)))
				})
				return acc
			}, combine))
		}

		for _, f := range e.World.DelegatedRanges(q) {
			flo, fhi := e.Boundaries.PartOff[f], e.Boundaries.PartOff[f+1]
			if active.PopcountRange(int(flo), int(fhi)) == 0 {
				continue
			}
			total = combine(total, executor.RunReduce(e.pools[q], wordRanges(flo, fhi, e.World.S), zero, func(threadIdx, word int) R {
				acc := zero
				active.ScanWord(word, func(v int) {
					if uint32(v) < flo || uint32(v) >= fhi {
						return
					}
					acc = combine(acc, fn(uint32(v)))
				})
				return acc
			}, combine))
		}
	}
	return total
}

// DenseSignal and DenseSlot are accepted by ProcessEdges for Core API
// parity with spec §6 (the symmetric incoming-direction pair of
// sparse_signal/sparse_slot) but are not invoked: per the resolution of
// the Open Question in DESIGN.md, this engine always routes messages
// point-to-point by destination ownership rather than densely scanning
// every vertex's incoming edges looking for a signal, so the sparse
// pair alone is sufficient and exact.
type DenseSignal[P any, M any] func(v uint32, neighbors []csrstore.Record[P], emit func(msg M))
type DenseSlot[M any, R any] func(v uint32, msg M) R

// ProcessEdges implements spec §6 "process_edges<R,M>": the three-phase
// signal/exchange/slot round of spec §4.4.
//
// Signal: for every active vertex v owned locally (by this process's
// own compute partition, or one of its delegated far-memory partitions),
// sparseSignal(v, emit) runs, where emit(dst, msg) appends a message
// unit to the signaling compute partition's own send arena.
//
// Exchange: each emitted unit is handed directly to the arena owned by
// the partition (or, for a far-memory destination, its delegate) that
// holds dst's adjacency — this Engine's point-to-point, exactly-once
// routing by destination ownership (see DESIGN.md's Open Question
// resolution), rather than the original's route-then-broadcast scheme.
//
// Slot: for every delivered (v, msg), sparseSlot(v, msg, neighbors(v))
// runs and the results are reduced with combine.
func ProcessEdges[P any, M any, R any](
	e *Engine[P],
	active *bitmap.Bitmap,
	sparseSignal func(v uint32, emit func(dst uint32, msg M)),
	sparseSlot func(v uint32, msg M, neighbors []csrstore.Record[P]) R,
	denseSignal DenseSignal[P, M],
	denseSlot DenseSlot[M, R],
	zero R,
	combine func(a, b R) R,
) R {
	_ = denseSignal
	_ = denseSlot

	capacity := e.totalEdges() + e.V + 1
	sendSet := message.NewSet[M](e.World.P, e.World.S, capacity)

	// Signal phase: every compute partition q signals its own range and
	// every range it delegates for, writing into its own send arena
	// (spec §4.4 step 1-3: local range first, then delegated ranges with
	// delegated_start markers).
	for q := 0; q < e.World.C; q++ {
		lo, hi := e.Boundaries.PartOff[q], e.Boundaries.PartOff[q+1]
		arena := sendSet.For(q, 0).Send
		signalRange(e.pools[q], lo, hi, active, e.World.S, sparseSignal, arena, e.opts.LocalSendBufferLimit)
		arena.SetOwnedCount()

		for j, f := range e.World.DelegatedRanges(q) {
			flo, fhi := e.Boundaries.PartOff[f], e.Boundaries.PartOff[f+1]
			arena.SetDelegatedStart(j)
			signalRange(e.pools[q], flo, fhi, active, e.World.S, sparseSignal, arena, e.opts.LocalSendBufferLimit)
		}
		arena.CloseDelegatedLayout(e.World.P)
	}

	// Exchange phase: route every emitted unit to the arena of whichever
	// partition owns its destination — the compute partition itself, or
	// the delegate standing in for a far-memory destination (spec §4.4
	// step 4, specialized to point-to-point exactly-once delivery). Each
	// sender partition's arena is scanned by its own goroutine via
	// errgroup, since the C arenas are independent and only the final
	// merge into recv needs to be sequential.
	routed := make([]map[int][]message.Unit[M], e.World.C)
	var g errgroup.Group
	for q := 0; q < e.World.C; q++ {
		q := q
		g.Go(func() error {
			local := make(map[int][]message.Unit[M])
			for _, unit := range sendSet.For(q, 0).Send.Units() {
				owner := ownerOf(e.Boundaries.PartOff, unit.Vertex)
				var dest int
				if e.World.IsCompute(owner) {
					dest = owner
				} else {
					dest = e.World.Delegate(owner)
				}
				local[dest] = append(local[dest], unit)
			}
			routed[q] = local
			return nil
		})
	}
	_ = g.Wait() // no sender goroutine above can return an error

	recv := make(map[int][]message.Unit[M])
	for _, local := range routed {
		for dest, units := range local {
			recv[dest] = append(recv[dest], units...)
		}
	}

	// Slot phase: each compute partition consumes every unit routed to
	// it, looking the destination vertex up in its own CSR (if it owns
	// it) or through its cache tier (if a delegated far-memory partition
	// owns it), and calls sparseSlot once per unit, with an empty
	// neighbor slice when the vertex has no stored edges. Units are chunked across q's pool
	// by the same socket-striped work-stealing scheme as the signal phase
	// and process_vertices, but over the flat recv[q] buffer index space
	// rather than a vertex range (spec §4.3/§4.4: "assign chunks across
	// threads by socket stripe ... work-stealing applies within the
	// parallel region").
	total := zero
	for q := 0; q < e.World.C; q++ {
		units := recv[q]
		if len(units) == 0 {
			// Pools are built once per compute partition and reused every
			// round (engine.go buildEngine): skip the call outright rather
			// than run it over empty ranges, which would leave each
			// thread's claimed range stale from whatever round last
			// assigned it.
			continue
		}
		ranges := wordRanges(0, uint32(len(units)), e.World.S)
		total = combine(total, executor.RunReduce(e.pools[q], ranges, zero, func(threadIdx, chunk int) R {
			lo := chunk * bitmap.BasicChunk
			hi := lo + bitmap.BasicChunk
			if hi > len(units) {
				hi = len(units)
			}
			acc := zero
			for _, unit := range units[lo:hi] {
				// A vertex with no stored edges resolves to (nil, false);
				// its message is still delivered, with empty neighbors.
				neighbors, _ := e.neighborsFor(q, unit.Vertex)
				acc = combine(acc, sparseSlot(unit.Vertex, unit.Msg, neighbors))
			}
			return acc
		}, combine))
	}
	return total
}

func signalRange[M any](pool *executor.Pool, lo, hi uint32, active *bitmap.Bitmap, numSockets int, signal func(v uint32, emit func(dst uint32, msg M)), arena *message.Arena[M], scratchLimit int) {
	if scratchLimit <= 0 {
		scratchLimit = 16
	}
	ranges := wordRanges(lo, hi, numSockets)
	if ranges == nil {
		return
	}
	pool.Run(ranges, func(threadIdx, word int) {
		scratch := message.NewScratch[M](scratchLimit)
		active.ScanWord(word, func(v int) {
			if uint32(v) < lo || uint32(v) >= hi {
				return
			}
			signal(uint32(v), func(dst uint32, msg M) {
				if scratch.Append(dst, msg) {
					_ = message.Flush(scratch, arena)
				}
			})
		})
		_ = message.Flush(scratch, arena)
	})
}

// totalEdges sums every socket's edge count across the outgoing
// direction's stores, a safe upper bound on how many messages a round
// driven by one emit-per-outgoing-edge signal function can produce.
func (e *Engine[P]) totalEdges() int {
	total := 0
	for _, store := range e.out.stores {
		if store == nil {
			continue
		}
		for _, sock := range store.Sockets {
			total += int(sock.NumEdges())
		}
	}
	return total
}

// neighborsFor resolves v's outgoing adjacency the way compute
// partition q's slot phase sees it: directly if q owns v, or through
// q's cache tier if v belongs to a far-memory partition q delegates.
func (e *Engine[P]) neighborsFor(q int, v uint32) ([]csrstore.Record[P], bool) {
	owner := ownerOf(e.Boundaries.PartOff, v)
	s := socketOf(e.Boundaries.LocalOffs[owner], v)
	if owner == q {
		return e.out.stores[q].Sockets[s].Neighbors(v), true
	}
	key := cache.Key{Partition: owner, Socket: s}
	return e.out.tiers[q].Resolve(key, v, 0)
}

// Transpose swaps the outgoing and incoming directions — their CSR
// stores, remote windows, and cache tiers — by reference only (spec
// §4.7: "data arrays, windows, caches, cache-stat counters ... swap by
// pointer, no bytes move"). For a symmetric (undirected) graph, the two
// directions already alias the same state, so Transpose is a no-op:
// calling it twice is trivially idempotent (spec §8 "Idempotence").
func (e *Engine[P]) Transpose() error {
	if e.Symmetric {
		return nil
	}
	if e.in == nil {
		return fmt.Errorf("engine: transpose called on a directed engine with no incoming direction built")
	}
	e.out, e.in = e.in, e.out
	return nil
}
