// Package message implements the per-partition, per-socket send/receive
// arenas with a delegated-ranges index described in spec §3 ("Message
// buffers") and driven by the delegation protocol of spec §4.4.
package message

import (
	"fmt"
	"sync/atomic"
)

// Unit is one (vertex, msg) wire unit written by a signal callback and
// consumed by a slot callback.
type Unit[M any] struct {
	Vertex uint32
	Msg    M
}

// Arena is one send_buffer or recv_buffer: a fixed-capacity array with
// a single atomic contention point (spec §5 "the count field is the only
// contention point and is handled by atomic add").
type Arena[M any] struct {
	data           []Unit[M]
	count          atomic.Uint64
	ownedCount     uint64
	delegatedStart []uint64 // length P+1; only entries for delegated partitions are meaningful
}

// NewArena allocates an arena with room for capacity units, for a world
// of p total partitions (sizing delegated_start).
func NewArena[M any](capacity, p int) *Arena[M] {
	return &Arena[M]{
		data:           make([]Unit[M], capacity),
		delegatedStart: make([]uint64, p+1),
	}
}

// Reserve atomically claims n contiguous slots, returning the offset of
// the first one — the fetch-and-add on count described in spec §4.4
// step 1 ("flush into the current partition's shared send buffer at a
// position obtained by atomic fetch-and-add on count").
func (a *Arena[M]) Reserve(n int) (uint64, error) {
	if n == 0 {
		return a.count.Load(), nil
	}
	end := a.count.Add(uint64(n))
	start := end - uint64(n)
	if int(end) > len(a.data) {
		return 0, fmt.Errorf("message: arena overflow: need %d, capacity %d", end, len(a.data))
	}
	return start, nil
}

// Write copies units into the arena starting at pos (obtained from a
// prior Reserve).
func (a *Arena[M]) Write(pos uint64, units []Unit[M]) {
	copy(a.data[pos:], units)
}

// Len returns the current count of written units.
func (a *Arena[M]) Len() uint64 { return a.count.Load() }

// Units returns the arena's contents as a read-only slice [0, Len()).
func (a *Arena[M]) Units() []Unit[M] {
	return a.data[:a.count.Load()]
}

// SetOwnedCount records owned_count := count (spec §4.4 step 2, "After
// flush, owned_count := count").
func (a *Arena[M]) SetOwnedCount() {
	a.ownedCount = a.count.Load()
}

// OwnedCount returns the prefix of the arena holding this process's own
// partition's messages.
func (a *Arena[M]) OwnedCount() uint64 { return a.ownedCount }

// SetDelegatedStart records delegated_start[j] := count, the layout
// marker used before signaling over a delegated far-memory partition's
// range (spec §4.4 step 3).
func (a *Arena[M]) SetDelegatedStart(j int) {
	a.delegatedStart[j] = a.count.Load()
}

// DelegatedRange returns [delegated_start[j], delegated_start[next]) —
// the segment of the arena holding messages destined for the j-th
// delegated partition in signaling order (spec §3 invariant). next is the
// marker that follows j: j+1 for a later delegated partition, or the P
// passed to CloseDelegatedLayout for the last one.
func (a *Arena[M]) DelegatedRange(j, next int) (lo, hi uint64) {
	return a.delegatedStart[j], a.delegatedStart[next]
}

// CloseDelegatedLayout sets delegated_start[P] := count, closing the
// layout (spec §4.4 step 3, "After the last delegation, delegated_start[P]
// := count closes the layout").
func (a *Arena[M]) CloseDelegatedLayout(p int) {
	a.delegatedStart[p] = a.count.Load()
}

// Reset clears the arena so it can be reused for another round; it never
// reallocates.
func (a *Arena[M]) Reset() {
	a.count.Store(0)
	a.ownedCount = 0
	for i := range a.delegatedStart {
		a.delegatedStart[i] = 0
	}
}

// Key identifies one (partition, socket) pair's buffer pair.
type Key struct {
	Partition int
	Socket    int
}

// Buffers is the send/receive arena pair for one (partition, socket).
type Buffers[M any] struct {
	Send *Arena[M]
	Recv *Arena[M]
}

// Set owns every (partition, socket) buffer pair for one round.
type Set[M any] struct {
	p, s       int
	capacity   int
	buffers    map[Key]*Buffers[M]
}

// NewSet allocates a buffer Set for a world of p partitions, s sockets,
// each arena sized capacity units.
func NewSet[M any](p, s, capacity int) *Set[M] {
	set := &Set[M]{p: p, s: s, capacity: capacity, buffers: make(map[Key]*Buffers[M])}
	for part := 0; part < p; part++ {
		for sock := 0; sock < s; sock++ {
			set.buffers[Key{part, sock}] = &Buffers[M]{
				Send: NewArena[M](capacity, p),
				Recv: NewArena[M](capacity, p),
			}
		}
	}
	return set
}

// For returns the buffer pair for (partition, socket).
func (set *Set[M]) For(partition, socket int) *Buffers[M] {
	return set.buffers[Key{partition, socket}]
}

// ResetAll clears every arena for the next round.
func (set *Set[M]) ResetAll() {
	for _, b := range set.buffers {
		b.Send.Reset()
		b.Recv.Reset()
	}
}

// Scratch is a thread-local write-combining buffer of spec §4.4 step 1:
// threads accumulate (vertex, msg) units here up to
// local_send_buffer_limit before flushing into the shared arena.
type Scratch[M any] struct {
	units []Unit[M]
	limit int
}

// NewScratch allocates a Scratch with the given local_send_buffer_limit.
func NewScratch[M any](limit int) *Scratch[M] {
	return &Scratch[M]{units: make([]Unit[M], 0, limit), limit: limit}
}

// Append adds a unit to the scratch buffer, reporting whether it is now
// full (the caller should flush before appending further).
func (s *Scratch[M]) Append(v uint32, msg M) (full bool) {
	s.units = append(s.units, Unit[M]{Vertex: v, Msg: msg})
	return len(s.units) >= s.limit
}

// Drain returns the buffered units and empties the scratch buffer.
func (s *Scratch[M]) Drain() []Unit[M] {
	out := s.units
	s.units = make([]Unit[M], 0, s.limit)
	return out
}

// Len reports how many units are currently buffered.
func (s *Scratch[M]) Len() int { return len(s.units) }

// Flush reserves space in arena for the scratch buffer's contents,
// writes them, and drains the scratch buffer — the combined
// reserve+write+drain sequence every signal-phase flush performs.
func Flush[M any](scratch *Scratch[M], arena *Arena[M]) error {
	if scratch.Len() == 0 {
		return nil
	}
	units := scratch.Drain()
	pos, err := arena.Reserve(len(units))
	if err != nil {
		return err
	}
	arena.Write(pos, units)
	return nil
}
