package cache

import (
	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/metrics"
)

// Tier composes the three cache layers into the consumer path described
// in spec §4.5: read the cached bitmap, read the cached index, then
// resolve the edge cache (hit in place, or push a prefetch request and
// spin-wait on miss).
type Tier[P any] struct {
	Bitmap *BitmapCache
	Index  *IndexCache
	Edges  *EdgeCache[P]

	prefetcher *Prefetcher[P]
	stats      map[Key]*metrics.CacheStats

	bitmapEnabled, indexEnabled, edgeEnabled bool
	direct                                   func(key Key, v uint32) ([]csrstore.Record[P], bool)
}

// NewTier wires a Tier around an already-started Prefetcher. The bitmap,
// index, and edge caches toggle independently (spec §6 "Cache enables":
// bitmap / index / edge caches independently on or off); since the three
// checks inside Resolve are sequentially dependent (bitmap gates index
// gates edge), disabling any one of them falls all the way through to
// direct, which reads v's adjacency straight from the origin store the
// same way a compute partition reads its own data.
func NewTier[P any](bitmap *BitmapCache, index *IndexCache, edges *EdgeCache[P], prefetcher *Prefetcher[P], bitmapEnabled, indexEnabled, edgeEnabled bool, direct func(key Key, v uint32) ([]csrstore.Record[P], bool)) *Tier[P] {
	return &Tier[P]{
		Bitmap:        bitmap,
		Index:         index,
		Edges:         edges,
		prefetcher:    prefetcher,
		stats:         make(map[Key]*metrics.CacheStats),
		bitmapEnabled: bitmapEnabled,
		indexEnabled:  indexEnabled,
		edgeEnabled:   edgeEnabled,
		direct:        direct,
	}
}

// StatsFor returns the CacheStats handle for key. Keys are pre-created
// up front by RegisterKey (engine.wireFarMemory calls it for every
// delegated far-memory partition/socket before any executor goroutine
// starts): Resolve is reached concurrently from the executor's parallel
// signal phase, so a lazily-written map here would race across threads
// resolving different keys on the same Tier (spec §5 "Statistics
// counters: plain atomic adds" only holds if the map itself is never
// mutated after construction).
func (t *Tier[P]) StatsFor(key Key) *metrics.CacheStats {
	if s, ok := t.stats[key]; ok {
		return s
	}
	return &metrics.CacheStats{}
}

// RegisterKey pre-creates the CacheStats handle for key. Must be called
// for every key Resolve can be reached with before Resolve is reachable
// concurrently.
func (t *Tier[P]) RegisterKey(key Key) {
	t.stats[key] = &metrics.CacheStats{}
}

// Resolve implements the full consumer path of spec §4.5 for message
// (key, v, msg): it returns the neighbor adjacency for v served from
// cache, or (nil, false) if v is absent from the cached bitmap (v has no
// edges stored for key).
func (t *Tier[P]) Resolve(key Key, v uint32, threadID int) ([]csrstore.Record[P], bool) {
	if !t.bitmapEnabled || !t.indexEnabled || !t.edgeEnabled {
		return t.direct(key, v)
	}
	if !t.Bitmap.Get(key, int(v)) {
		return nil, false
	}
	lo, hi, ok := t.Index.Range(key, v)
	if !ok {
		return nil, false
	}
	stats := t.StatsFor(key)
	if records, hit := t.Edges.Lookup(key, v); hit {
		stats.Hit.Add(1)
		return records, true
	}
	stats.Miss.Add(1)
	t.prefetcher.Submit(Request{Key: key, Vertex: v, Lo: lo, Hi: hi, ThreadID: threadID})
	return t.prefetcher.WaitForHit(key, v), true
}
