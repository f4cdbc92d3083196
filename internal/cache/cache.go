// Package cache implements the three-tier on-demand cache of spec §3
// ("Cache tier") and §4.5 ("Cache Tier and Prefetch Pipeline"): a full
// bitmap-word copy and a full index copy pulled once per delegated or
// referenced far-memory partition, plus a direct-mapped edge cache fed by
// a background prefetch pipeline.
package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/remotewindow"
)

// Key identifies one (partition, socket) pair's cached state.
type Key struct {
	Partition int
	Socket    int
}

// BitmapCache holds a full copy of adj_bitmap for every far-memory
// partition delegated or referenced (spec §3 "Bitmap-word cache").
type BitmapCache struct {
	mu    sync.RWMutex
	words map[Key][]uint64
}

func NewBitmapCache() *BitmapCache {
	return &BitmapCache{words: make(map[Key][]uint64)}
}

// Pull performs the single bulk remote read described in spec §4.2
// ("bitmap and index are pulled in full into the cache tier with a
// single remote read and then the window unlocked").
func (c *BitmapCache) Pull(ctx context.Context, reg remotewindow.Registry, key Key, id remotewindow.WindowID, wordCount int) error {
	lock, err := reg.AcquireShared(ctx, id)
	if err != nil {
		return fmt.Errorf("cache: acquire bitmap window %+v: %w", id, err)
	}
	defer lock.Release()

	buf := make([]byte, wordCount*8)
	n, err := reg.Read(ctx, id, 0, buf)
	if err != nil {
		return fmt.Errorf("cache: read bitmap window %+v: %w", id, err)
	}
	words := make([]uint64, wordCount)
	for i := 0; i*8+8 <= n; i++ {
		words[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	c.mu.Lock()
	c.words[key] = words
	c.mu.Unlock()
	return nil
}

// Get reports whether vertex v is active according to the cached bitmap.
func (c *BitmapCache) Get(key Key, v int) bool {
	c.mu.RLock()
	words := c.words[key]
	c.mu.RUnlock()
	if words == nil {
		return false
	}
	w, bit := v/64, uint(v%64)
	if w >= len(words) {
		return false
	}
	return words[w]&(1<<bit) != 0
}

// IndexCache holds a full copy of adj_index for every far-memory
// partition delegated or referenced (spec §3 "Index cache").
type IndexCache struct {
	mu    sync.RWMutex
	index map[Key][]uint64
}

func NewIndexCache() *IndexCache {
	return &IndexCache{index: make(map[Key][]uint64)}
}

func (c *IndexCache) Pull(ctx context.Context, reg remotewindow.Registry, key Key, id remotewindow.WindowID, length int) error {
	lock, err := reg.AcquireShared(ctx, id)
	if err != nil {
		return fmt.Errorf("cache: acquire index window %+v: %w", id, err)
	}
	defer lock.Release()

	buf := make([]byte, length*8)
	n, err := reg.Read(ctx, id, 0, buf)
	if err != nil {
		return fmt.Errorf("cache: read index window %+v: %w", id, err)
	}
	idx := make([]uint64, length)
	for i := 0; i*8+8 <= n; i++ {
		idx[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	c.mu.Lock()
	c.index[key] = idx
	c.mu.Unlock()
	return nil
}

// Range returns [idx0, idx1) for vertex v, and whether the cache has been
// hydrated for key at all.
func (c *IndexCache) Range(key Key, v uint32) (lo, hi uint64, ok bool) {
	c.mu.RLock()
	idx := c.index[key]
	c.mu.RUnlock()
	if idx == nil || int(v)+1 >= len(idx) {
		return 0, 0, false
	}
	return idx[v], idx[v+1], true
}

// edgeSlot is one direct-mapped edge-cache entry. tag == 0 means empty;
// tag == v+1 means hit for source v (GLOSSARY "Edge-cache slot"). The
// prefetcher is the sole writer; workers read tag with an acquire load,
// which under the Go memory model makes the preceding plain write to
// payload visible once the matching tag is observed (spec §4.5: "set
// tag := v+1 with a release fence so that consumers see tag change only
// once data is visible").
type edgeSlot[P any] struct {
	tag     atomic.Uint64
	payload []csrstore.Record[P]
}

// EdgeCache is the direct-mapped table of spec §4.5, K entries per
// (partition, socket).
type EdgeCache[P any] struct {
	k     int
	mu    sync.RWMutex
	table map[Key][]*edgeSlot[P]
}

func NewEdgeCache[P any](k int) *EdgeCache[P] {
	return &EdgeCache[P]{k: k, table: make(map[Key][]*edgeSlot[P])}
}

func (c *EdgeCache[P]) slots(key Key) []*edgeSlot[P] {
	c.mu.RLock()
	s, ok := c.table[key]
	c.mu.RUnlock()
	if ok {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.table[key]; ok {
		return s
	}
	s = make([]*edgeSlot[P], c.k)
	for i := range s {
		s[i] = &edgeSlot[P]{}
	}
	c.table[key] = s
	return s
}

func (c *EdgeCache[P]) slotFor(key Key, v uint32) *edgeSlot[P] {
	s := c.slots(key)
	return s[int(v)%c.k]
}

// Lookup reports a cache hit only when the slot's tag still matches v
// (conflict is resolved by later overwrite, not explicit eviction: spec
// §4.5 "Replacement").
func (c *EdgeCache[P]) Lookup(key Key, v uint32) ([]csrstore.Record[P], bool) {
	slot := c.slotFor(key, v)
	if slot.tag.Load() == uint64(v)+1 {
		return slot.payload, true
	}
	return nil, false
}

// fill is called only by the prefetcher: it writes the payload then
// publishes the tag, in that order.
func (c *EdgeCache[P]) fill(key Key, v uint32, records []csrstore.Record[P]) {
	slot := c.slotFor(key, v)
	slot.payload = records
	slot.tag.Store(uint64(v) + 1)
}
