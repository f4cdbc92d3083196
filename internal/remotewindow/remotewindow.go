// Package remotewindow models the one-sided memory windows that publish a
// far-memory partition's three CSR arrays for remote reads (spec §3
// "Remote windows", §4.2 "Window publication"). The registry is an
// interface so tests can swap in a fault-injecting implementation; the
// only implementation in this repository is internal/remotewindow/local,
// which honors the contract over plain process memory (see SPEC_FULL.md
// Non-goals: there is no one-sided RDMA client in the Go ecosystem pack
// to wire here instead).
package remotewindow

import "context"

// ArrayKind identifies which of a partition's three CSR arrays a window
// exposes (spec §3 "its three CSR arrays").
type ArrayKind int

const (
	Bitmap ArrayKind = iota
	Index
	List
)

func (k ArrayKind) String() string {
	switch k {
	case Bitmap:
		return "bitmap"
	case Index:
		return "index"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// WindowID names one (partition, socket, direction, kind) window.
type WindowID struct {
	Partition int
	Socket    int
	Outgoing  bool
	Kind      ArrayKind
}

// Lock represents a long-lived shared lock a delegate holds on a
// far-memory partition's list window for the full lifetime of a
// computation (spec §3 "Remote windows"). Release must be called at
// engine shutdown.
type Lock interface {
	Release() error
}

// Registry publishes windows and serves one-sided reads against them.
// Only far-memory partitions' arrays are registered; compute partitions
// register no window (spec §4.2 "Window publication").
type Registry interface {
	// Register publishes backing bytes for id.
	Register(id WindowID, data []byte) error

	// AcquireShared takes a long-lived shared lock on id's window,
	// required before a delegate may issue reads against a far-memory
	// list window (spec §3).
	AcquireShared(ctx context.Context, id WindowID) (Lock, error)

	// Read performs a one-sided bulk read of [offset, offset+len) from
	// id's window into dst, returning the number of bytes copied.
	// Spec §4.2: "bitmap and index are pulled in full into the cache
	// tier with a single remote read and then the window unlocked."
	Read(ctx context.Context, id WindowID, offset int64, dst []byte) (int, error)

	// Flush waits for all outstanding reads against id to complete and
	// become visible, the drain step of spec §4.5's prefetch pipeline.
	Flush(ctx context.Context, id WindowID) error

	// Close tears down every window. It does not release locks taken
	// with AcquireShared; those are released through Lock.Release.
	Close() error
}
