package client

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"ccanvas/bindings"
)

// Event is an event pushed by the server together with the obligation to
// confirm it. The server holds back further events for the same subscription
// until it is confirmed, so every Event must be confirmed exactly once with
// Done or Release. Receiver.Handle does this automatically.
//
// An Event that becomes unreachable without being confirmed is confirmed with
// pass=true by the garbage collector. Relying on that stalls the session until
// the next collection.
type Event struct {
	variant bindings.EventVariant
	id      uint32
	ob      *obligation
}

// obligation is kept outside Event so the cleanup can run after the Event
// itself is unreachable.
type obligation struct {
	id      uint32
	done    atomic.Bool
	confirm func(id uint32, pass bool) error
}

func (o *obligation) settle(pass bool) error {
	if !o.done.CompareAndSwap(false, true) {
		return nil
	}
	return o.confirm(o.id, pass)
}

func newEvent(variant bindings.EventVariant, id uint32, confirm func(uint32, bool) error) *Event {
	ob := &obligation{id: id, confirm: confirm}
	ev := &Event{variant: variant, id: id, ob: ob}
	runtime.AddCleanup(ev, func(ob *obligation) { _ = ob.settle(true) }, ob)
	return ev
}

// Variant returns the event payload.
func (e *Event) Variant() bindings.EventVariant { return e.variant }

// ID returns the server-side event id.
func (e *Event) ID() uint32 { return e.id }

// Done confirms the event. pass=false captures it: subscribers with lower
// priority never see it. Only the first call has any effect; later calls
// return nil.
func (e *Event) Done(pass bool) error {
	return e.ob.settle(pass)
}

// Release confirms the event with pass=true.
func (e *Event) Release() error {
	return e.Done(true)
}

// Confirmed reports whether Done or Release has been called.
func (e *Event) Confirmed() bool {
	return e.ob.done.Load()
}

// eventQueue is an unbounded single-consumer FIFO. It never blocks the accept
// loop, so responses keep flowing while the consumer is busy.
type eventQueue struct {
	mu     sync.Mutex
	items  []*Event
	notify chan struct{}
	closed bool
	gauge  interface{ Set(float64) }
}

func newEventQueue(gauge interface{ Set(float64) }) *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1), gauge: gauge}
}

func (q *eventQueue) push(ev *Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	q.gauge.Set(float64(len(q.items)))
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *eventQueue) pop(ctx context.Context) (*Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.gauge.Set(float64(len(q.items)))
			q.mu.Unlock()
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close rejects further pushes and returns the events nobody took.
func (q *eventQueue) close() []*Event {
	q.mu.Lock()
	q.closed = true
	rest := q.items
	q.items = nil
	q.gauge.Set(0)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return rest
}

// Receiver is the single consumer of a client's events.
type Receiver struct {
	queue *eventQueue
}

// Recv blocks until an event arrives, ctx ends, or the client closes. The
// caller owns the returned event's confirmation.
func (r *Receiver) Recv(ctx context.Context) (*Event, error) {
	return r.queue.pop(ctx)
}

// Handle receives one event and passes it to fn. If fn returns, fails, or
// panics without confirming the event, it is confirmed with pass=true.
func (r *Receiver) Handle(ctx context.Context, fn func(*Event) error) (err error) {
	ev, err := r.Recv(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := ev.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn(ev)
}
