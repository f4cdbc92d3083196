// Package local is the in-process Registry implementation: it honors the
// acquire/shared-lock/bulk-read/release contract of remotewindow.Registry
// over plain Go memory guarded by a sync.RWMutex, standing in for the
// one-sided RDMA transport (SPEC_FULL.md Non-goals).
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/gilchrisn/farmesh/internal/remotewindow"
)

type window struct {
	mu   sync.RWMutex
	data []byte
}

// Registry is the single-process remotewindow.Registry implementation.
type Registry struct {
	mu      sync.Mutex
	windows map[remotewindow.WindowID]*window
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{windows: make(map[remotewindow.WindowID]*window)}
}

var _ remotewindow.Registry = (*Registry)(nil)

func (r *Registry) Register(id remotewindow.WindowID, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[id] = &window{data: data}
	return nil
}

type sharedLock struct {
	w *window
}

func (l *sharedLock) Release() error {
	l.w.mu.RUnlock()
	return nil
}

func (r *Registry) lookup(id remotewindow.WindowID) (*window, error) {
	r.mu.Lock()
	w, ok := r.windows[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("remotewindow/local: unregistered window %+v", id)
	}
	return w, nil
}

func (r *Registry) AcquireShared(ctx context.Context, id remotewindow.WindowID) (remotewindow.Lock, error) {
	w, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	return &sharedLock{w: w}, nil
}

func (r *Registry) Read(ctx context.Context, id remotewindow.WindowID, offset int64, dst []byte) (int, error) {
	w, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if offset < 0 || offset > int64(len(w.data)) {
		return 0, fmt.Errorf("remotewindow/local: read offset %d out of range (len %d)", offset, len(w.data))
	}
	n := copy(dst, w.data[offset:])
	return n, nil
}

// Flush is a no-op: local reads are synchronous and already visible to
// the caller when Read returns, so there is nothing to drain.
func (r *Registry) Flush(ctx context.Context, id remotewindow.WindowID) error {
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = make(map[remotewindow.WindowID]*window)
	return nil
}
