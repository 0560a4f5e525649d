package client

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestIDAllocatorStartsAtOne(t *testing.T) {
	ids := NewIDAllocator()
	for want := uint32(1); want <= 3; want++ {
		got, err := ids.Next()
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		if got != want {
			t.Fatalf("Next = %d, want %d", got, want)
		}
	}
}

func TestIDAllocatorConcurrentUnique(t *testing.T) {
	ids := NewIDAllocator()
	const workers, each = 8, 500

	var mu sync.Mutex
	seen := make(map[uint32]struct{}, workers*each)
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			local := make([]uint32, 0, each)
			for range each {
				id, err := ids.Next()
				if err != nil {
					t.Errorf("Next returned error: %v", err)
					return
				}
				local = append(local, id)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if _, dup := seen[id]; dup {
					t.Errorf("id %d issued twice", id)
				}
				seen[id] = struct{}{}
			}
		})
	}
	wg.Wait()
	if len(seen) != workers*each {
		t.Fatalf("issued %d unique ids, want %d", len(seen), workers*each)
	}
}

func TestIDAllocatorExhaustion(t *testing.T) {
	ids := NewIDAllocator()
	ids.last.Store(math.MaxUint32 - 1)

	got, err := ids.Next()
	if err != nil || got != math.MaxUint32 {
		t.Fatalf("Next = %d, %v; want max id", got, err)
	}
	if _, err := ids.Next(); !errors.Is(err, ErrIDSpaceExhausted) {
		t.Fatalf("expected ErrIDSpaceExhausted, got %v", err)
	}
	if _, err := ids.Next(); !errors.Is(err, ErrIDSpaceExhausted) {
		t.Fatalf("exhaustion should be sticky, got %v", err)
	}
}

func TestDefaultIDAllocatorShared(t *testing.T) {
	if DefaultIDAllocator() != DefaultIDAllocator() {
		t.Fatal("expected one process-wide allocator")
	}
}
