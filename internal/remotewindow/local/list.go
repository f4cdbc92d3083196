package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/gilchrisn/farmesh/internal/csrstore"
	"github.com/gilchrisn/farmesh/internal/remotewindow"
)

type listWindow[P any] struct {
	mu      sync.RWMutex
	records []csrstore.Record[P]
}

// ListRegistry is the in-process remotewindow.ListRegistry[P] implementation.
type ListRegistry[P any] struct {
	mu      sync.Mutex
	windows map[remotewindow.ListID]*listWindow[P]
}

// NewList constructs an empty ListRegistry.
func NewList[P any]() *ListRegistry[P] {
	return &ListRegistry[P]{windows: make(map[remotewindow.ListID]*listWindow[P])}
}

var _ remotewindow.ListRegistry[struct{}] = (*ListRegistry[struct{}])(nil)

func (r *ListRegistry[P]) Register(id remotewindow.ListID, records []csrstore.Record[P]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[id] = &listWindow[P]{records: records}
	return nil
}

type listLock[P any] struct{ w *listWindow[P] }

func (l *listLock[P]) Release() error {
	l.w.mu.RUnlock()
	return nil
}

func (r *ListRegistry[P]) lookup(id remotewindow.ListID) (*listWindow[P], error) {
	r.mu.Lock()
	w, ok := r.windows[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("remotewindow/local: unregistered list window %+v", id)
	}
	return w, nil
}

func (r *ListRegistry[P]) AcquireShared(ctx context.Context, id remotewindow.ListID) (remotewindow.Lock, error) {
	w, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	return &listLock[P]{w: w}, nil
}

func (r *ListRegistry[P]) ReadRange(ctx context.Context, id remotewindow.ListID, lo, hi uint64) ([]csrstore.Record[P], error) {
	w, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if hi > uint64(len(w.records)) || lo > hi {
		return nil, fmt.Errorf("remotewindow/local: range [%d,%d) out of bounds (len %d)", lo, hi, len(w.records))
	}
	out := make([]csrstore.Record[P], hi-lo)
	copy(out, w.records[lo:hi])
	return out, nil
}

func (r *ListRegistry[P]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = make(map[remotewindow.ListID]*listWindow[P])
	return nil
}
