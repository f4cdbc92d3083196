// Package engine implements the Edge Engine of spec §4 end to end: it
// owns the per-partition CSR stores of both directions, the remote
// windows and cache tiers standing in for far-memory nodes, and the
// work-stealing pools driving process_vertices/process_edges/transpose
// (spec §6 "Core API"). A single Engine value simulates the whole
// cluster — every compute and far-memory partition — inside one Go
// process, since there is no multi-process transport in this pack to
// drive real rank-to-rank traffic over (SPEC_FULL.md Non-goals).
package engine

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/farmesh/internal/bitmap"
	"github.com/gilchrisn/farmesh/internal/cache"
	"github.com/gilchrisn/farmesh/internal/config"
	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/executor"
	"github.com/gilchrisn/farmesh/internal/graphio"
	"github.com/gilchrisn/farmesh/internal/metrics"
	"github.com/gilchrisn/farmesh/internal/partition"
	"github.com/gilchrisn/farmesh/internal/remotewindow"
	"github.com/gilchrisn/farmesh/internal/remotewindow/local"
	"github.com/gilchrisn/farmesh/internal/topology"
)

// direction holds every piece of state specific to one of the two CSR
// directions (outgoing/incoming): the per-partition stores and the
// remote-window/cache-tier machinery that serves far-memory partitions'
// copies of those stores to their delegates (spec §3 "Remote windows",
// "Cache tier").
type direction[P any] struct {
	outgoing bool
	stores   []*csrstore.Store[P] // index by partition id, length P
	byteReg  remotewindow.Registry
	listReg  *local.ListRegistry[P]
	tiers    []*cache.Tier[P] // index by compute partition id, length C
	locks    []remotewindow.Lock
}

// Options configures an Engine at construction. Zero-value fields fall
// back to the defaults in withDefaults; Threads (1), EdgeCacheK (1<<10)
// and PrefetchQueueSize (64) differ there from internal/config's defaults.
type Options struct {
	PageAlign            uint32
	Alpha                uint64 // 0 means compute α = 8*(P-1) (spec §3)
	Threads              int    // total executor threads per compute partition
	LocalSendBufferLimit int    // scratch batching size before a signal-phase flush (spec §4.4 step 1)
	EdgeCacheK           int
	PrefetchQueueSize    int
	Logger               zerolog.Logger
	Reporter             metrics.Reporter

	// DisableBitmapCache, DisableIndexCache, and DisableEdgeCache toggle
	// the three cache layers independently (spec §6 "Cache enables").
	// Named negatively so the zero value (as used by every Options
	// literal built before this field existed) keeps all three enabled.
	DisableBitmapCache bool
	DisableIndexCache  bool
	DisableEdgeCache   bool
}

// FromConfig derives Options from a loaded Config (spec §6 configuration
// table), the way algorithm drivers are expected to build an Engine.
func FromConfig(cfg *config.Config) Options {
	return Options{
		PageAlign:            cfg.PageAlign(),
		Threads:              cfg.Threads(),
		LocalSendBufferLimit: cfg.LocalSendBufferLimit(),
		EdgeCacheK:           cfg.EdgeCacheEntries(),
		PrefetchQueueSize:    cfg.PrefetchQueueSize(),
		Logger:               cfg.CreateLogger(),
		Reporter:             metrics.NopReporter{},
		DisableBitmapCache:   !cfg.BitmapCacheEnabled(),
		DisableIndexCache:    !cfg.IndexCacheEnabled(),
		DisableEdgeCache:     !cfg.EdgeCacheEnabled(),
	}
}

func (o Options) withDefaults() Options {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.LocalSendBufferLimit <= 0 {
		o.LocalSendBufferLimit = 16
	}
	if o.EdgeCacheK <= 0 {
		o.EdgeCacheK = 1 << 10
	}
	if o.PrefetchQueueSize <= 0 {
		o.PrefetchQueueSize = 64
	}
	if o.PageAlign == 0 {
		o.PageAlign = 1
	}
	if o.Reporter == nil {
		o.Reporter = metrics.NopReporter{}
	}
	return o
}

// Engine is the root type of the package: the single in-process
// coordinator for a whole cluster's worth of partitions, implementing
// the Core API named in spec §6.
type Engine[P any] struct {
	World      topology.World
	V          int
	Boundaries *partition.Boundaries
	Symmetric  bool

	out *direction[P]
	in  *direction[P] // == out when Symmetric

	pools  []*executor.Pool // index by compute partition id, length C
	opts   Options
	cancel context.CancelFunc
}

func ownerOf(partOff []uint32, v uint32) int {
	for p := 0; p < len(partOff)-1; p++ {
		if v >= partOff[p] && v < partOff[p+1] {
			return p
		}
	}
	return len(partOff) - 2
}

func socketOf(localOffs []uint32, v uint32) int {
	for s := 0; s < len(localOffs)-1; s++ {
		if v >= localOffs[s] && v < localOffs[s+1] {
			return s
		}
	}
	return len(localOffs) - 2
}

// degreeArray computes the per-vertex degree array the Partitioner
// balances on for each edge's outgoing endpoint (spec §3 "balance
// invariant": Σ(out_degree(v)+α) approximately equal per partition).
// For an undirected load, both endpoints of every edge count, since the
// mirrored reciprocal edge contributes an outgoing record at the other
// endpoint too.
func degreeArray[P any](v int, edges []csrstore.Edge[P], symmetric bool) []uint64 {
	degree := make([]uint64, v)
	for _, e := range edges {
		degree[e.Src]++
		if symmetric {
			degree[e.Dst]++
		}
	}
	return degree
}

// LoadDirected builds an Engine from a directed edge file (spec §6
// "load_directed"): separate outgoing and incoming CSR stores, one per
// partition, each filtered to the edges whose relevant endpoint (src for
// outgoing, dst for incoming) that partition owns.
func LoadDirected[P any](path string, v int, codec graphio.Codec[P], world topology.World, opts Options) (*Engine[P], error) {
	edges, err := graphio.ReadEdges[P](path, codec)
	if err != nil {
		return nil, fmt.Errorf("engine: load_directed: %w", err)
	}
	return buildEngine[P](world, v, edges, false, opts)
}

// LoadUndirectedFromDirected builds an Engine from a directed edge file
// that lists each undirected edge once, mirroring it into a reciprocal
// record before partitioning (spec §6 "load_undirected_from_directed").
// Outgoing and incoming directions share one CSR store per partition.
func LoadUndirectedFromDirected[P any](path string, v int, codec graphio.Codec[P], world topology.World, opts Options) (*Engine[P], error) {
	edges, err := graphio.ReadEdges[P](path, codec)
	if err != nil {
		return nil, fmt.Errorf("engine: load_undirected_from_directed: %w", err)
	}
	return buildEngine[P](world, v, edges, true, opts)
}

func buildEngine[P any](world topology.World, v int, edges []csrstore.Edge[P], symmetric bool, opts Options) (*Engine[P], error) {
	opts = opts.withDefaults()

	degree := degreeArray(v, edges, symmetric)
	alpha := opts.Alpha
	if alpha == 0 {
		alpha = partition.Alpha(world.P)
	}
	boundaries, err := partition.ComputeAll(degree, world.P, world.S, alpha, opts.PageAlign)
	if err != nil {
		return nil, fmt.Errorf("engine: partition boundaries: %w", err)
	}

	outEdges := make([][]csrstore.Edge[P], world.P)
	var inEdges [][]csrstore.Edge[P]
	if !symmetric {
		inEdges = make([][]csrstore.Edge[P], world.P)
	}
	for _, e := range edges {
		srcOwner := ownerOf(boundaries.PartOff, e.Src)
		outEdges[srcOwner] = append(outEdges[srcOwner], e)
		if symmetric {
			dstOwner := ownerOf(boundaries.PartOff, e.Dst)
			outEdges[dstOwner] = append(outEdges[dstOwner], csrstore.Edge[P]{Src: e.Dst, Dst: e.Src, Payload: e.Payload})
		} else {
			dstOwner := ownerOf(boundaries.PartOff, e.Dst)
			inEdges[dstOwner] = append(inEdges[dstOwner], e)
		}
	}

	outDir := &direction[P]{outgoing: true, stores: make([]*csrstore.Store[P], world.P)}
	var inDir *direction[P]
	if symmetric {
		inDir = outDir
	} else {
		inDir = &direction[P]{outgoing: false, stores: make([]*csrstore.Store[P], world.P)}
	}

	for p := 0; p < world.P; p++ {
		localOffs := boundaries.LocalOffs[p]
		sf := func(x uint32) int { return socketOf(localOffs, x) }
		outStore, err := csrstore.Build(v, world.S, sf, outEdges[p], func(e csrstore.Edge[P]) (uint32, uint32) { return e.Src, e.Dst })
		if err != nil {
			return nil, fmt.Errorf("engine: build outgoing CSR for partition %d: %w", p, err)
		}
		outDir.stores[p] = outStore

		if !symmetric {
			inStore, err := csrstore.Build(v, world.S, sf, inEdges[p], func(e csrstore.Edge[P]) (uint32, uint32) { return e.Dst, e.Src })
			if err != nil {
				return nil, fmt.Errorf("engine: build incoming CSR for partition %d: %w", p, err)
			}
			inDir.stores[p] = inStore
		}
	}

	eng := &Engine[P]{
		World:      world,
		V:          v,
		Boundaries: boundaries,
		Symmetric:  symmetric,
		out:        outDir,
		in:         inDir,
		opts:       opts,
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng.cancel = cancel

	if err := eng.wireFarMemory(ctx, outDir); err != nil {
		return nil, err
	}
	if !symmetric {
		if err := eng.wireFarMemory(ctx, inDir); err != nil {
			return nil, err
		}
	}

	eng.pools = make([]*executor.Pool, world.C)
	for q := 0; q < world.C; q++ {
		eng.pools[q] = executor.New(opts.Threads, world.S, opts.Logger)
	}

	return eng, nil
}

// wireFarMemory registers remote windows for every far-memory
// partition's three CSR arrays (spec §4.2 "Window publication") and
// hydrates each delegate's bitmap/index cache from them, holding the
// list window's shared lock for the engine's lifetime (spec §3 "Remote
// windows": "the delegate holds the lock for the computation's
// duration").
//
// Compute partitions never register windows for their own data: since
// this Engine simulates every rank inside one process, a compute
// partition's own CSR is always reachable directly, and the "empty
// window so the collective handshake completes on every rank" mechanic
// of the original MPI-based design has no analog without a real
// collective call to complete (documented in DESIGN.md).
func (e *Engine[P]) wireFarMemory(ctx context.Context, dir *direction[P]) error {
	dir.byteReg = local.New()
	dir.listReg = local.NewList[P]()
	dir.tiers = make([]*cache.Tier[P], e.World.C)

	for f := e.World.C; f < e.World.P; f++ {
		for s := 0; s < e.World.S; s++ {
			sock := dir.stores[f].Sockets[s]

			bitmapID := remotewindow.WindowID{Partition: f, Socket: s, Outgoing: dir.outgoing, Kind: remotewindow.Bitmap}
			if err := dir.byteReg.Register(bitmapID, bitmapBytes(sock.AdjBitmap)); err != nil {
				return fmt.Errorf("engine: register bitmap window %+v: %w", bitmapID, err)
			}
			indexID := remotewindow.WindowID{Partition: f, Socket: s, Outgoing: dir.outgoing, Kind: remotewindow.Index}
			if err := dir.byteReg.Register(indexID, indexBytes(sock.AdjIndex)); err != nil {
				return fmt.Errorf("engine: register index window %+v: %w", indexID, err)
			}
			listID := remotewindow.ListID{Partition: f, Socket: s, Outgoing: dir.outgoing}
			if err := dir.listReg.Register(listID, sock.AdjList); err != nil {
				return fmt.Errorf("engine: register list window %+v: %w", listID, err)
			}
		}
	}

	listSource := func(key cache.Key) remotewindow.ListID {
		return remotewindow.ListID{Partition: key.Partition, Socket: key.Socket, Outgoing: dir.outgoing}
	}
	bitmapEnabled := !e.opts.DisableBitmapCache
	indexEnabled := !e.opts.DisableIndexCache
	edgeEnabled := !e.opts.DisableEdgeCache

	for q := 0; q < e.World.C; q++ {
		edgeCache := cache.NewEdgeCache[P](e.opts.EdgeCacheK)
		prefetcher := cache.NewPrefetcher[P](edgeCache, dir.listReg, listSource, &metrics.CacheStats{}, e.opts.PrefetchQueueSize)
		prefetcher.Start(ctx)
		// direct bypasses the whole cache tier and reads v's adjacency
		// straight off the origin store, the same way a compute partition
		// reads its own data: used whenever any of the three cache layers
		// is disabled (see cache.NewTier).
		direct := func(key cache.Key, v uint32) ([]csrstore.Record[P], bool) {
			s := socketOf(e.Boundaries.LocalOffs[key.Partition], v)
			return dir.stores[key.Partition].Sockets[s].Neighbors(v), true
		}
		tier := cache.NewTier[P](cache.NewBitmapCache(), cache.NewIndexCache(), edgeCache, prefetcher, bitmapEnabled, indexEnabled, edgeEnabled, direct)
		dir.tiers[q] = tier

		for _, f := range e.World.DelegatedRanges(q) {
			for s := 0; s < e.World.S; s++ {
				key := cache.Key{Partition: f, Socket: s}
				sock := dir.stores[f].Sockets[s]

				// Every key Resolve can be reached with is known here,
				// before any executor goroutine exists: pre-create its
				// stats handle so Resolve's concurrent readers never write
				// to tier.stats (see cache.Tier.StatsFor).
				tier.RegisterKey(key)

				if bitmapEnabled {
					bitmapID := remotewindow.WindowID{Partition: f, Socket: s, Outgoing: dir.outgoing, Kind: remotewindow.Bitmap}
					if err := tier.Bitmap.Pull(ctx, dir.byteReg, key, bitmapID, sock.AdjBitmap.WordCount()); err != nil {
						return fmt.Errorf("engine: pull bitmap cache for delegate %d / partition %d: %w", q, f, err)
					}
				}
				if indexEnabled {
					indexID := remotewindow.WindowID{Partition: f, Socket: s, Outgoing: dir.outgoing, Kind: remotewindow.Index}
					if err := tier.Index.Pull(ctx, dir.byteReg, key, indexID, len(sock.AdjIndex)); err != nil {
						return fmt.Errorf("engine: pull index cache for delegate %d / partition %d: %w", q, f, err)
					}
				}

				listID := remotewindow.ListID{Partition: f, Socket: s, Outgoing: dir.outgoing}
				lock, err := dir.listReg.AcquireShared(ctx, listID)
				if err != nil {
					return fmt.Errorf("engine: acquire list window lock for delegate %d / partition %d: %w", q, f, err)
				}
				dir.locks = append(dir.locks, lock)
			}
		}
	}
	return nil
}

func bitmapBytes(b *bitmap.Bitmap) []byte {
	n := b.WordCount()
	buf := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], b.Word(i))
	}
	return buf
}

func indexBytes(idx []uint64) []byte {
	buf := make([]byte, len(idx)*8)
	for i, v := range idx {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

// OutNeighbors returns v's outgoing adjacency, reading a compute
// partition's own store directly or resolving a far-memory partition's
// adjacency through its delegate's cache tier (spec §4.5 consumer path).
// Returns (nil, false) when v belongs to a far-memory partition whose
// cached bitmap reports it inactive.
func (e *Engine[P]) OutNeighbors(v uint32) ([]csrstore.Record[P], bool) {
	return e.neighbors(e.out, v)
}

// InNeighbors is the incoming-direction counterpart of OutNeighbors.
func (e *Engine[P]) InNeighbors(v uint32) ([]csrstore.Record[P], bool) {
	return e.neighbors(e.in, v)
}

// OutStore exposes partition p's outgoing CSR store directly, for the
// debug/cross-check path described in SPEC_FULL.md's DOMAIN STACK table
// (csrstore.ToGonumDirected/ToGonumUndirected, used by the `bench` CLI
// sub-command) rather than general consumption.
func (e *Engine[P]) OutStore(p int) *csrstore.Store[P] { return e.out.stores[p] }

// InStore is the incoming-direction counterpart of OutStore.
func (e *Engine[P]) InStore(p int) *csrstore.Store[P] { return e.in.stores[p] }

func (e *Engine[P]) neighbors(dir *direction[P], v uint32) ([]csrstore.Record[P], bool) {
	p := ownerOf(e.Boundaries.PartOff, v)
	if e.World.IsCompute(p) {
		s := socketOf(e.Boundaries.LocalOffs[p], v)
		return dir.stores[p].Sockets[s].Neighbors(v), true
	}
	q := e.World.Delegate(p)
	s := socketOf(e.Boundaries.LocalOffs[p], v)
	key := cache.Key{Partition: p, Socket: s}
	return dir.tiers[q].Resolve(key, v, 0)
}

// Close releases every long-lived list-window lock and stops the
// background prefetchers, the mirror image of construction's window
// acquisition (spec §4.8 "Lifecycle": locks are released at teardown).
func (e *Engine[P]) Close() error {
	e.cancel()
	for _, dir := range e.directions() {
		for _, lock := range dir.locks {
			_ = lock.Release()
		}
		if dir.byteReg != nil {
			_ = dir.byteReg.Close()
		}
		if dir.listReg != nil {
			_ = dir.listReg.Close()
		}
	}
	return nil
}

func (e *Engine[P]) directions() []*direction[P] {
	if e.Symmetric {
		return []*direction[P]{e.out}
	}
	return []*direction[P]{e.out, e.in}
}
