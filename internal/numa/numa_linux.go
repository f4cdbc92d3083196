//go:build linux

// Package numa provides the socket-pinning hint behind "socket-pinned" in
// spec §2/§5, and the per-socket allocation hint that stands in for
// graph.hpp's numa_alloc_onnode calls (SPEC_FULL.md supplement 4).
package numa

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Hint records which NUMA socket an array or worker goroutine should be
// placed on. On Linux it is honored for goroutines via CPU affinity; for
// slices it is advisory metadata only, since Go's allocator has no public
// NUMA-aware placement API.
type Hint struct {
	Socket int
}

// PinCurrentThread locks the calling goroutine to its OS thread and
// restricts that thread's CPU affinity to the CPUs belonging to socket,
// out of socketCount total sockets, assuming CPUs are striped evenly
// across sockets (cpu % socketCount == socket).
//
// Best-effort: affinity failures are not fatal (unlike CSR/partition
// invariants), since pinning is a performance hint, not a correctness
// requirement.
func PinCurrentThread(socket, socketCount int) error {
	runtime.LockOSThread()
	if socketCount <= 0 {
		return nil
	}
	ncpu := runtime.NumCPU()
	var set unix.CPUSet
	set.Zero()
	for cpu := 0; cpu < ncpu; cpu++ {
		if cpu%socketCount == socket {
			set.Set(cpu)
		}
	}
	return unix.SchedSetaffinity(0, &set)
}
