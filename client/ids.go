package client

import (
	"math"
	"sync"
	"sync/atomic"
)

// IDAllocator hands out request ids. Ids start at 1 and never repeat; once
// math.MaxUint32 has been issued Next fails with ErrIDSpaceExhausted.
//
// Responses are matched on id alone, so every client talking to the same
// server from one process must share an allocator.
type IDAllocator struct {
	last atomic.Uint32
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next unused id.
func (a *IDAllocator) Next() (uint32, error) {
	for {
		cur := a.last.Load()
		if cur == math.MaxUint32 {
			return 0, ErrIDSpaceExhausted
		}
		if a.last.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

var defaultIDs = sync.OnceValue(NewIDAllocator)

// DefaultIDAllocator returns the process-wide allocator used by clients
// created without WithIDAllocator.
func DefaultIDAllocator() *IDAllocator {
	return defaultIDs()
}
