package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"ccanvas/bindings"
	"ccanvas/internal/logging"
)

// Sender delivers one request to the server.
type Sender interface {
	Send(ctx context.Context, req bindings.Request) error
}

// SocketSender opens a fresh connection to the request socket for every
// request, writes one JSON document and closes the connection. The server
// reads until EOF.
type SocketSender struct {
	Path         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewSocketSender returns a sender for the request socket at path.
func NewSocketSender(path string, dialTimeout time.Duration) *SocketSender {
	return &SocketSender{Path: path, DialTimeout: dialTimeout, WriteTimeout: dialTimeout}
}

// Send implements Sender.
func (s *SocketSender) Send(ctx context.Context, req bindings.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &ProtocolError{Err: err}
	}

	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", s.Path)
	if err != nil {
		return &ConnectionError{Op: "dial", Path: s.Path, Err: err}
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if s.WriteTimeout > 0 {
		if limit := time.Now().Add(s.WriteTimeout); !ok || limit.Before(deadline) {
			deadline, ok = limit, true
		}
	}
	if ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return &ConnectionError{Op: "write", Path: s.Path, Err: err}
		}
	}
	if _, err := conn.Write(payload); err != nil {
		return &ConnectionError{Op: "write", Path: s.Path, Err: err}
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return &ConnectionError{Op: "close", Path: s.Path, Err: err}
		}
	}
	return nil
}

// outbound is one queued send. done is nil for fire-and-forget requests.
type outbound struct {
	req  bindings.Request
	done chan error
}

// dispatcher drains the outbound queue and sends each request on its own
// goroutine, so a slow connection never holds up later requests.
type dispatcher struct {
	sender Sender
	queue  chan outbound
	logger *slog.Logger

	// mu orders enqueue against close: once stopped is set, nothing new
	// reaches the queue, so the drain sees every accepted job.
	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func newDispatcher(sender Sender, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		sender: sender,
		queue:  make(chan outbound, 64),
		logger: logging.NewComponentLogger(logger, "dispatcher"),
		stop:   make(chan struct{}),
	}
}

func (d *dispatcher) run(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				d.drain(ctx)
				return
			case job := <-d.queue:
				d.wg.Add(1)
				go func() {
					defer d.wg.Done()
					d.deliver(ctx, job)
				}()
			}
		}
	}()
}

// drain sends whatever was queued before stop, typically confirmations for
// events released during close.
func (d *dispatcher) drain(ctx context.Context) {
	for {
		select {
		case job := <-d.queue:
			d.deliver(ctx, job)
		default:
			return
		}
	}
}

func (d *dispatcher) deliver(ctx context.Context, job outbound) {
	err := d.sender.Send(ctx, job.req)
	if job.done != nil {
		job.done <- err
		return
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "request send failed",
			"request_send_failed",
			logging.Uint64(logging.FieldRequestID, uint64(job.req.ID())),
			logging.String(logging.FieldRequestType, bindings.RequestTag(job.req.Content())),
			logging.Error(err),
			logging.String(logging.FieldImpact, "server did not receive the request"),
			logging.String(logging.FieldErrorHint, "check that the server is running and the request socket path is correct"),
		)
	}
}

// enqueue hands req to the dispatcher. With wait set, the returned channel
// yields the send result.
func (d *dispatcher) enqueue(ctx context.Context, req bindings.Request, wait bool) (<-chan error, error) {
	job := outbound{req: req}
	if wait {
		job.done = make(chan error, 1)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil, ErrClosed
	}
	select {
	case d.queue <- job:
		return job.done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close stops accepting work and waits until queued and in-flight sends
// finish or ctx ends. On ctx expiry the sends are still running; the caller
// cancels them and calls wait.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.stop)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) wait() { d.wg.Wait() }
