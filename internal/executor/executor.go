// Package executor implements the work-stealing, socket-pinned thread
// pool of spec §4.3 ("Bitmap & Work Assignment") and §5 ("Scheduling"):
// per-thread (curr, end, status) state, socket-local initial ranges, and
// a steal phase once a thread's own range is exhausted.
package executor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/farmesh/internal/numa"
)

// Status is a thread's work-assignment state.
type Status int32

const (
	Working Status = iota
	Stealing
)

type threadState struct {
	curr   atomic.Uint64
	end    uint64
	status atomic.Int32 // Status
	socket int
}

// Pool is a fixed-size, socket-aware work-stealing thread pool. Threads
// are numbered [0, T) and partitioned T/S per socket, the last thread of
// a socket absorbing any remainder (spec §4.3).
type Pool struct {
	threads          []*threadState
	threadsPerSocket int
	sockets          int
	logger           zerolog.Logger
}

// New builds a Pool of numThreads threads pinned across numSockets
// sockets.
func New(numThreads, numSockets int, logger zerolog.Logger) *Pool {
	if numSockets <= 0 {
		numSockets = 1
	}
	if numThreads <= 0 {
		numThreads = 1
	}
	threadsPerSocket := numThreads / numSockets
	if threadsPerSocket == 0 {
		threadsPerSocket = 1
	}
	threads := make([]*threadState, numThreads)
	for i := range threads {
		socket := i / threadsPerSocket
		if socket >= numSockets {
			socket = numSockets - 1
		}
		threads[i] = &threadState{socket: socket}
	}
	return &Pool{threads: threads, threadsPerSocket: threadsPerSocket, sockets: numSockets, logger: logger}
}

// NumThreads returns the pool's thread count.
func (p *Pool) NumThreads() int { return len(p.threads) }

// threadsInSocket returns the indices of threads pinned to socket.
func (p *Pool) threadsInSocket(socket int) []int {
	var out []int
	for i, th := range p.threads {
		if th.socket == socket {
			out = append(out, i)
		}
	}
	return out
}

// assignSocket splits the word range [loWord, hiWord) evenly across
// socket's threads, the last thread absorbing the remainder (spec §4.3:
// "Initial [curr, end) is [local_off[s] + (size/threads_per_socket/64)*64*s_j
// ... the last thread of each socket absorbing the remainder").
func (p *Pool) assignSocket(socket, loWord, hiWord int) {
	threads := p.threadsInSocket(socket)
	n := len(threads)
	if n == 0 {
		return
	}
	total := hiWord - loWord
	per := total / n
	cur := loWord
	for i, idx := range threads {
		start := cur
		end := start + per
		if i == n-1 {
			end = hiWord
		}
		th := p.threads[idx]
		th.curr.Store(uint64(start))
		th.end = uint64(end)
		th.status.Store(int32(Working))
		cur = end
	}
}

// claimChunk returns the next word index for thread idx to process,
// first from its own range via atomic fetch-and-add, then by stealing
// from a peer still Working (spec §4.3 "Threads claim chunks with an
// atomic fetch-and-add of 64 on curr; when their range is exhausted,
// they flip status to STEALING and probe peer threads whose status is
// still WORKING, claiming chunks from them until no work remains").
func (p *Pool) claimChunk(idx int) (int, bool) {
	th := p.threads[idx]
	for {
		cur := th.curr.Add(1) - 1
		if cur < th.end {
			return int(cur), true
		}
		th.status.Store(int32(Stealing))
		if word, ok := p.steal(idx); ok {
			return word, true
		}
		if p.allStealing() {
			return 0, false
		}
		runtime.Gosched()
	}
}

func (p *Pool) steal(self int) (int, bool) {
	for i, th := range p.threads {
		if i == self {
			continue
		}
		if Status(th.status.Load()) == Stealing {
			continue
		}
		cur := th.curr.Add(1) - 1
		if cur < th.end {
			return int(cur), true
		}
	}
	return 0, false
}

func (p *Pool) allStealing() bool {
	for _, th := range p.threads {
		if Status(th.status.Load()) == Working {
			return false
		}
	}
	return true
}

// SocketRange is a [LoWord, HiWord) word-index range assigned to a socket.
type SocketRange struct {
	Socket        int
	LoWord, HiWord int
}

// Run executes fn(threadIdx, wordIndex) with work stealing over the
// given per-socket word ranges, fork-join style: it blocks until every
// thread has exhausted its range and the steal phase confirms no work
// remains (spec §5 "All parallelism inside process_vertices /
// process_edges is fork-join with work stealing").
func (p *Pool) Run(ranges []SocketRange, fn func(threadIdx, word int)) {
	for _, r := range ranges {
		p.assignSocket(r.Socket, r.LoWord, r.HiWord)
	}
	var wg sync.WaitGroup
	for i := range p.threads {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			socket := p.threads[idx].socket
			if err := numa.PinCurrentThread(socket, p.sockets); err != nil {
				p.logger.Debug().Err(err).Int("thread", idx).Int("socket", socket).Msg("affinity pin skipped")
			}
			for {
				word, ok := p.claimChunk(idx)
				if !ok {
					return
				}
				fn(idx, word)
			}
		}(i)
	}
	wg.Wait()
}

// RunReduce is Run plus a per-thread accumulator combined at the end —
// the work-stealing core of process_vertices's globally reduced R
// (spec §4.6). The engine combines these per-partition results directly;
// there is no separate all-reduce step.
func RunReduce[R any](p *Pool, ranges []SocketRange, zero R, fn func(threadIdx, word int) R, combine func(a, b R) R) R {
	for _, r := range ranges {
		p.assignSocket(r.Socket, r.LoWord, r.HiWord)
	}
	partials := make([]R, len(p.threads))
	for i := range partials {
		partials[i] = zero
	}
	var wg sync.WaitGroup
	for i := range p.threads {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			socket := p.threads[idx].socket
			_ = numa.PinCurrentThread(socket, p.sockets)
			acc := zero
			for {
				word, ok := p.claimChunk(idx)
				if !ok {
					break
				}
				acc = combine(acc, fn(idx, word))
			}
			partials[idx] = acc
		}(i)
	}
	wg.Wait()
	total := zero
	for _, part := range partials {
		total = combine(total, part)
	}
	return total
}
