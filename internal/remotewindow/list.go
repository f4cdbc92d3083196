package remotewindow

import (
	"context"

	"github.com/gilchrisn/farmesh/internal/csrstore"
)

// ListID names one partition/socket/direction's neighbor-record array —
// the typed counterpart to WindowID{Kind: List}. Neighbor records carry
// an arbitrary payload type P, so they are served through a dedicated
// typed registry rather than forced through the byte-oriented Registry
// above: there is no generic wire codec in scope for arbitrary Go
// payload types (SPEC_FULL.md Non-goals), so the list array is kept
// typed end to end instead of round-tripping through []byte.
type ListID struct {
	Partition int
	Socket    int
	Outgoing  bool
}

// ListRegistry serves one-sided bulk reads of CSR neighbor records,
// honoring the same acquire/shared-lock/bulk-read contract as Registry
// (spec §3 "Remote windows", §4.2 "Window publication").
type ListRegistry[P any] interface {
	Register(id ListID, records []csrstore.Record[P]) error
	AcquireShared(ctx context.Context, id ListID) (Lock, error)
	ReadRange(ctx context.Context, id ListID, lo, hi uint64) ([]csrstore.Record[P], error)
	Close() error
}
