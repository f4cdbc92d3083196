// Package csrstore implements the per-socket compressed sparse-row
// adjacency storage of spec §3 ("Per-direction CSR") built by the
// two-pass counting/placement procedure of spec §4.2.
package csrstore

import (
	"fmt"
	"sync/atomic"

	"github.com/gilchrisn/farmesh/internal/bitmap"
)

// Edge is one raw (src, dst, payload) record as read off the wire format
// of spec §6 before it is sharded into a socket's CSR.
type Edge[P any] struct {
	Src     uint32
	Dst     uint32
	Payload P
}

// Record is a packed neighbor entry stored in AdjList: a destination
// (for the outgoing direction) or source (for the incoming direction)
// plus its optional payload (spec §3 "adj_list").
type Record[P any] struct {
	Vertex  uint32
	Payload P
}

// CompressedEntry is a (vertex, index) pair in the compressed index,
// covering only sources with a non-empty adjacency list (spec §3
// "compressed_adj").
type CompressedEntry struct {
	Vertex uint32
	Index  uint64
}

// Socket holds one socket's replica of the CSR for one direction.
type Socket[P any] struct {
	AdjBitmap     *bitmap.Bitmap
	AdjIndex      []uint64 // length V+1, prefix-sum
	AdjList       []Record[P]
	CompressedAdj []CompressedEntry // length K+1
}

// NumEdges returns the number of records landing on this socket.
func (s *Socket[P]) NumEdges() uint64 {
	return s.AdjIndex[len(s.AdjIndex)-1]
}

// Neighbors returns the adjacency slice for source v (spec §3 residency
// invariant: contiguous positions [adj_index[v], adj_index[v+1])).
func (s *Socket[P]) Neighbors(v uint32) []Record[P] {
	lo, hi := s.AdjIndex[v], s.AdjIndex[v+1]
	return s.AdjList[lo:hi]
}

// Store is the full per-direction CSR, replicated across sockets.
type Store[P any] struct {
	V       int
	Sockets []*Socket[P]
}

// socketOf maps a vertex to its owning socket using the partition's
// per-socket boundaries (local_off), mirroring how the Partitioner's
// ComputeSockets output is consumed downstream.
type socketOf func(v uint32) int

// Build runs the two-pass counting/placement procedure of spec §4.2 over
// edges already routed to this node (i.e. edges whose index key, source
// for outgoing / destination for incoming, belongs to this partition).
// indexBy extracts the CSR index key from an edge (src for
// the outgoing direction, dst for the incoming direction); the other
// endpoint becomes the stored neighbor.
func Build[P any](v int, numSockets int, socket socketOf, edges []Edge[P], indexBy func(Edge[P]) (key, neighbor uint32)) (*Store[P], error) {
	if numSockets <= 0 {
		return nil, fmt.Errorf("csrstore: numSockets must be positive, got %d", numSockets)
	}
	sockets := make([]*Socket[P], numSockets)
	counts := make([][]uint64, numSockets)
	bitmaps := make([]*bitmap.Bitmap, numSockets)
	for s := 0; s < numSockets; s++ {
		counts[s] = make([]uint64, v+1)
		bitmaps[s] = bitmap.New(v)
	}

	// Counting pass: tally per-source degree into adj_index, set bitmap.
	for _, e := range edges {
		key, _ := indexBy(e)
		s := socket(key)
		counts[s][key]++
		bitmaps[s].Set(int(key))
	}

	// Prefix-sum each socket's counts into adj_index, building
	// compressed_adj alongside from the set of non-empty sources.
	for s := 0; s < numSockets; s++ {
		var running uint64
		var compressed []CompressedEntry
		for i := 0; i < v; i++ {
			c := counts[s][i]
			if c > 0 {
				compressed = append(compressed, CompressedEntry{Vertex: uint32(i), Index: running})
			}
			counts[s][i] = running
			running += c
		}
		counts[s][v] = running
		compressed = append(compressed, CompressedEntry{Vertex: uint32(v), Index: running})
		sockets[s] = &Socket[P]{
			AdjBitmap:     bitmaps[s],
			AdjIndex:      append([]uint64(nil), counts[s]...),
			AdjList:       make([]Record[P], running),
			CompressedAdj: compressed,
		}
	}

	// Placement pass: atomically claim a write slot by post-incrementing
	// the working copy of adj_index, then write the record.
	writeCursor := make([][]uint64, numSockets)
	for s := 0; s < numSockets; s++ {
		writeCursor[s] = append([]uint64(nil), counts[s][:v]...)
	}
	for _, e := range edges {
		key, neighbor := indexBy(e)
		s := socket(key)
		slot := atomicPostIncrement(&writeCursor[s][key])
		sockets[s].AdjList[slot] = Record[P]{Vertex: neighbor, Payload: e.Payload}
	}

	// Restore adj_index to the prefix-sum values (already held in
	// sockets[s].AdjIndex, untouched by the placement pass since it
	// mutated only the separate writeCursor copy) — spec §4.2 "After
	// this pass, adj_index is restored to the prefix-sum values by
	// copying from compressed_adj." The copy-from-working-array here and
	// copy-from-compressed_adj in the original are equivalent: both
	// recover the same prefix-sum.
	return &Store[P]{V: v, Sockets: sockets}, nil
}

func atomicPostIncrement(p *uint64) uint64 {
	return atomic.AddUint64(p, 1) - 1
}
