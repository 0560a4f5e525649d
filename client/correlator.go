package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ccanvas/bindings"
)

// Correlator matches responses to the requests awaiting them. Each slot is
// filled at most once and removed when it is resolved or cancelled.
type Correlator struct {
	mu      sync.Mutex
	pending map[uint32]chan bindings.ResponseContent
	closed  bool
}

// NewCorrelator returns an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[uint32]chan bindings.ResponseContent)}
}

// Register opens a slot for id. It must be called before the request is sent
// so a fast response cannot miss it.
func (c *Correlator) Register(id uint32) (<-chan bindings.ResponseContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, exists := c.pending[id]; exists {
		return nil, fmt.Errorf("ccanvas: request id %d already pending", id)
	}
	ch := make(chan bindings.ResponseContent, 1)
	c.pending[id] = ch
	return ch, nil
}

// Resolve fills and removes the slot for id. It reports false when no request
// is waiting on id.
func (c *Correlator) Resolve(id uint32, content bindings.ResponseContent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id)
	ch <- content
	return true
}

// Cancel removes the slot for id without filling it. It reports whether the
// slot was still pending.
func (c *Correlator) Cancel(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// Await blocks until the slot registered for id is resolved, ctx ends, or the
// correlator closes. A response that wins the race against cancellation is
// still returned.
func (c *Correlator) Await(ctx context.Context, id uint32, ch <-chan bindings.ResponseContent) (bindings.ResponseContent, error) {
	select {
	case content, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return content, nil
	case <-ctx.Done():
		if !c.Cancel(id) {
			// Resolve or Close already ran under the lock, so ch is ready.
			if content, ok := <-ch; ok {
				return content, nil
			}
			return nil, ErrClosed
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: request %d: %w", ErrTimeout, id, ctx.Err())
		}
		return nil, fmt.Errorf("ccanvas: request %d: %w", id, ctx.Err())
	}
}

// Pending returns the number of open slots.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close unblocks every waiter with ErrClosed and rejects new registrations.
func (c *Correlator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
