package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ccanvas/bindings"
)

func TestCorrelatorResolveDeliversOnce(t *testing.T) {
	c := NewCorrelator()
	slot, err := c.Register(7)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := c.Register(7); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	want := bindings.SuccessContent{Content: bindings.Rendered{}}
	if !c.Resolve(7, want) {
		t.Fatal("Resolve reported no waiter")
	}
	if c.Resolve(7, want) {
		t.Fatal("second Resolve should find the slot removed")
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", c.Pending())
	}

	got, err := c.Await(context.Background(), 7, slot)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if got != want {
		t.Fatalf("Await = %#v, want %#v", got, want)
	}
}

func TestCorrelatorResolveUnknownID(t *testing.T) {
	c := NewCorrelator()
	if c.Resolve(99, bindings.Undelivered{}) {
		t.Fatal("expected Resolve to report false for an unknown id")
	}
}

func TestCorrelatorAwaitTimeout(t *testing.T) {
	c := NewCorrelator()
	slot, err := c.Register(3)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Await(ctx, 3, slot)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded in chain, got %v", err)
	}
	if c.Pending() != 0 {
		t.Fatalf("timed out slot still pending")
	}
	if c.Resolve(3, bindings.Undelivered{}) {
		t.Fatal("late response should be discarded")
	}
}

func TestCorrelatorAwaitCancelled(t *testing.T) {
	c := NewCorrelator()
	slot, _ := c.Register(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Await(ctx, 4, slot)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("cancellation must not read as a timeout: %v", err)
	}
}

func TestCorrelatorResolveWinsRace(t *testing.T) {
	c := NewCorrelator()
	slot, _ := c.Register(5)
	want := bindings.SuccessContent{Content: bindings.Dropped{}}
	c.Resolve(5, want)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := c.Await(ctx, 5, slot)
	if err != nil {
		t.Fatalf("expected resolved content despite cancellation, got %v", err)
	}
	if got != want {
		t.Fatalf("Await = %#v", got)
	}
}

func TestCorrelatorCloseUnblocksWaiters(t *testing.T) {
	c := NewCorrelator()
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for id := uint32(1); id <= 3; id++ {
		slot, err := c.Register(id)
		if err != nil {
			t.Fatalf("Register(%d) returned error: %v", id, err)
		}
		wg.Go(func() {
			_, err := c.Await(context.Background(), id, slot)
			errs <- err
		})
	}

	c.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	}
	if _, err := c.Register(10); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected Register after Close to fail, got %v", err)
	}
	c.Close()
}
