package cache

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/metrics"
	"github.com/gilchrisn/farmesh/internal/remotewindow"
)

// Request is one prefetch request (v, partition, idx0, idx1, socket,
// thread_id) as described in spec §4.5.
type Request struct {
	Key      Key
	Vertex   uint32
	Lo, Hi   uint64
	ThreadID int
}

// ListSource resolves a cache Key to the remotewindow.ListID serving it,
// so the prefetcher doesn't need to know the engine's window-naming
// scheme.
type ListSource func(key Key) remotewindow.ListID

// Prefetcher is the free-standing producer/consumer task loop of spec
// §4.5: a dedicated background task consumes a bounded per-thread queue
// of prefetch requests, issuing one-sided reads into edge-cache slots.
type Prefetcher[P any] struct {
	cache    *EdgeCache[P]
	list     remotewindow.ListRegistry[P]
	listID   ListSource
	stats    *metrics.CacheStats
	queue    chan Request
	done     chan struct{}
	stopOnce chan struct{}
}

// NewPrefetcher constructs a Prefetcher. queueSize bounds the channel
// capacity, which provides the back-pressure described in spec §4.5
// ("a producer stalls when producer_idx - consumer_idx > QUEUE_SIZE -
// basic_chunk"): a buffered channel at capacity makes Submit block,
// exactly the stall the spec calls for.
func NewPrefetcher[P any](cache *EdgeCache[P], list remotewindow.ListRegistry[P], listID ListSource, stats *metrics.CacheStats, queueSize int) *Prefetcher[P] {
	return &Prefetcher[P]{
		cache:  cache,
		list:   list,
		listID: listID,
		stats:  stats,
		queue:  make(chan Request, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the background consumer loop. Call Stop to drain and
// terminate it deterministically at shutdown.
func (p *Prefetcher[P]) Start(ctx context.Context) {
	go p.loop(ctx)
}

func (p *Prefetcher[P]) loop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			p.handle(ctx, req)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prefetcher[P]) handle(ctx context.Context, req Request) {
	if _, hit := p.cache.Lookup(req.Key, req.Vertex); hit {
		return // spec §4.5 step 1: slot already tags v+1, skip
	}
	id := p.listID(req.Key)
	records, err := p.list.ReadRange(ctx, id, req.Lo, req.Hi)
	if err != nil {
		// Protocol/transport errors are unrecoverable (spec §4.8); a
		// background task cannot propagate synchronously to the
		// consumer that's spin-waiting, so it fails loud instead of
		// silently leaving the tag unset forever.
		panic(fmt.Sprintf("cache: prefetch read failed for %+v vertex %d: %v", req.Key, req.Vertex, err))
	}
	p.cache.fill(req.Key, req.Vertex, records)
}

// Submit enqueues a prefetch request, blocking (the back-pressure of
// spec §4.5) if the queue is full.
func (p *Prefetcher[P]) Submit(req Request) {
	p.queue <- req
}

// Stop closes the request queue and waits for the consumer loop to
// drain and exit — "a deterministic drain on shutdown" (SPEC_FULL.md
// DESIGN NOTES, re-architecture of the background prefetcher).
func (p *Prefetcher[P]) Stop() {
	close(p.queue)
	<-p.done
}

// WaitForHit spin-waits until key/v becomes a cache hit (spec §4.5
// consumer path step 4; spec §5 "Spin on tag fields of edge-cache slots
// ... spins use a pause hint"). runtime.Gosched yields the P to another
// goroutine each spin, the idiomatic Go substitute for a CPU pause
// instruction.
func (p *Prefetcher[P]) WaitForHit(key Key, v uint32) []csrstore.Record[P] {
	for {
		if records, hit := p.cache.Lookup(key, v); hit {
			return records
		}
		runtime.Gosched()
	}
}
