package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"ccanvas/bindings"
	"ccanvas/internal/logging"
)

// Client is one component's connection to the server. It is safe for
// concurrent use, except that events have a single consumer (see Receiver).
type Client struct {
	cfg       Config
	logger    *slog.Logger
	sessionID string

	ids        *IDAllocator
	correlator *Correlator
	sender     Sender
	dispatcher *dispatcher
	listener   *inboundListener
	events     *eventQueue
	metrics    *metrics
	tracer     trace.Tracer

	receiverTaken atomic.Bool

	batchMu sync.Mutex
	batch   RenderBatch

	runCtx    context.Context
	cancel    context.CancelFunc
	closing   chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// New binds the listener socket, starts the accept loop and dispatcher, and
// registers the listener with the server. The registration request is written
// before New returns; a connection failure aborts New. The server's
// acknowledgement is awaited in the background.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ccanvas: invalid config: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}
	if o.ids == nil {
		o.ids = DefaultIDAllocator()
	}
	if o.sender == nil {
		o.sender = NewSocketSender(cfg.RequestSocket, cfg.DialTimeout)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ccanvas").With(logging.String(logging.FieldSessionID, o.sessionID))

	m := newMetrics(o.registerer, o.namespace)
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:        cfg,
		logger:     logger,
		sessionID:  o.sessionID,
		ids:        o.ids,
		correlator: NewCorrelator(),
		sender:     o.sender,
		events:     newEventQueue(m.queued),
		metrics:    m,
		tracer:     newTracer(o.tracerProvider),
		runCtx:     runCtx,
		cancel:     cancel,
		closing:    make(chan struct{}),
	}

	listener, err := newInboundListener(cfg, c.route, logger, m)
	if err != nil {
		cancel()
		return nil, err
	}
	c.listener = listener
	c.dispatcher = newDispatcher(c.sender, logger)

	if err := c.handshake(ctx); err != nil {
		cancel()
		_ = listener.close()
		return nil, err
	}

	listener.serve()
	c.dispatcher.run(runCtx)
	logger.Info("client connected",
		logging.String(logging.FieldSocket, listener.Path()),
		logging.String("request_socket", cfg.RequestSocket),
	)
	return c, nil
}

// handshake writes the set socket request directly, bypassing the dispatcher,
// then waits for "listener set" in the background.
func (c *Client) handshake(ctx context.Context) error {
	id, err := c.ids.Next()
	if err != nil {
		return err
	}
	slot, err := c.correlator.Register(id)
	if err != nil {
		return err
	}
	req := bindings.NewRequest(bindings.Discriminator{}, bindings.SetSocket{Path: c.listener.Path()}, id)
	c.metrics.requests.WithLabelValues(bindings.TagSetSocket).Inc()
	if err := c.sender.Send(ctx, req); err != nil {
		c.correlator.Cancel(id)
		return err
	}

	c.metrics.pending.Inc()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.metrics.pending.Dec()
		waitCtx, cancel := context.WithTimeout(c.runCtx, c.cfg.HandshakeTimeout)
		defer cancel()
		content, err := c.correlator.Await(waitCtx, id, slot)
		if err == nil {
			err = expectSuccess[bindings.ListenerSet](content)
		}
		switch {
		case err == nil:
			c.logger.Debug("listener registered", logging.Uint64(logging.FieldRequestID, uint64(id)))
		case errors.Is(err, ErrClosed), errors.Is(err, context.Canceled):
		default:
			logging.WarnWithContext(c.logger, "listener registration not acknowledged",
				"handshake_unconfirmed",
				logging.Uint64(logging.FieldRequestID, uint64(id)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "responses and events may not reach this client"),
				logging.String(logging.FieldErrorHint, "check that the server can reach the listener socket"),
			)
		}
	}()
	return nil
}

// SessionID returns the id attached to this client's log lines and spans.
func (c *Client) SessionID() string { return c.sessionID }

// ListenerPath returns the socket the server delivers to.
func (c *Client) ListenerPath() string { return c.listener.Path() }

// Receiver hands out the client's event receiver. It can be taken once;
// later calls return ErrReceiverTaken.
func (c *Client) Receiver() (*Receiver, error) {
	if !c.receiverTaken.CompareAndSwap(false, true) {
		return nil, ErrReceiverTaken
	}
	return &Receiver{queue: c.events}, nil
}

// route is called by the accept loop for every decoded message.
func (c *Client) route(resp bindings.Response) {
	if ev, ok := resp.Content.(bindings.EventContent); ok {
		c.metrics.eventsReceived.WithLabelValues(bindings.EventTag(ev.Content)).Inc()
		event := newEvent(ev.Content, resp.ID, c.confirm)
		if !c.events.push(event) {
			_ = event.Release()
		}
		return
	}

	c.metrics.responses.WithLabelValues(bindings.ResponseTag(resp.Content)).Inc()
	if resp.Request == nil {
		c.metrics.decodeErrors.Inc()
		logging.WarnWithContext(c.logger, "response without request id",
			"response_uncorrelated",
			logging.String("response_type", bindings.ResponseTag(resp.Content)),
			logging.String(logging.FieldImpact, "response dropped"),
			logging.String(logging.FieldErrorHint, "server sent a reply with request set to null"),
		)
		return
	}
	if !c.correlator.Resolve(*resp.Request, resp.Content) {
		c.logger.Debug("response for unknown request",
			logging.Uint64(logging.FieldRequestID, uint64(*resp.Request)),
			logging.String("response_type", bindings.ResponseTag(resp.Content)),
		)
	}
}

// confirm sends a confirmation for event id without waiting for it.
func (c *Client) confirm(eventID uint32, pass bool) error {
	if c.closed.Load() {
		return ErrClosed
	}
	id, err := c.ids.Next()
	if err != nil {
		return err
	}
	req := bindings.NewRequest(bindings.Discriminator{}, bindings.ConfirmReceive{ID: eventID, Pass: pass}, id)
	if _, err := c.dispatcher.enqueue(c.runCtx, req, false); err != nil {
		return err
	}
	c.metrics.requests.WithLabelValues(bindings.TagConfirmReceive).Inc()
	c.metrics.confirmed(pass)
	c.logger.Debug("event confirmed",
		logging.Uint64(logging.FieldEventID, uint64(eventID)),
		logging.Bool("pass", pass),
	)
	return nil
}

// Request sends content to target and waits for its response. A success
// payload is returned as is; an error response becomes *ServerError and an
// undelivered response ErrUndelivered.
func (c *Client) Request(ctx context.Context, target bindings.Discriminator, content bindings.RequestContent) (bindings.ResponseSuccess, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	id, err := c.ids.Next()
	if err != nil {
		return nil, err
	}
	req := bindings.NewRequest(target, content, id)
	ctx, span := c.startRequestSpan(ctx, req)
	resp, err := c.roundTrip(ctx, req)
	endRequestSpan(span, resp, err)
	if err != nil {
		return nil, err
	}
	return interpret(resp)
}

func (c *Client) roundTrip(ctx context.Context, req bindings.Request) (bindings.ResponseContent, error) {
	tag := bindings.RequestTag(req.Content())
	slot, err := c.correlator.Register(req.ID())
	if err != nil {
		return nil, err
	}
	c.metrics.pending.Inc()
	defer c.metrics.pending.Dec()

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	ctx = logging.WithRequestID(ctx, req.ID())

	started := time.Now()
	sent, err := c.dispatcher.enqueue(ctx, req, true)
	if err != nil {
		c.correlator.Cancel(req.ID())
		return nil, err
	}
	c.metrics.requests.WithLabelValues(tag).Inc()

	select {
	case err = <-sent:
	case <-c.closing:
		err = ErrClosed
	case <-ctx.Done():
		err = ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: request %d not sent: %w", ErrTimeout, req.ID(), err)
		}
	}
	if err != nil {
		c.correlator.Cancel(req.ID())
		if errors.Is(err, ErrTimeout) {
			c.warnTimeout(ctx, tag, err)
		} else {
			c.logger.DebugContext(ctx, "request not sent",
				logging.String(logging.FieldRequestType, tag),
				logging.Error(err),
			)
		}
		return nil, err
	}

	content, err := c.correlator.Await(ctx, req.ID(), slot)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			c.warnTimeout(ctx, tag, err)
		}
		return nil, err
	}
	c.metrics.requestDuration.WithLabelValues(tag).Observe(time.Since(started).Seconds())
	return content, nil
}

func (c *Client) warnTimeout(ctx context.Context, tag string, err error) {
	logging.WarnContext(ctx, c.logger, "request timed out",
		"request_timeout",
		logging.String(logging.FieldRequestType, tag),
		logging.Error(err),
		logging.String(logging.FieldImpact, "the operation may or may not have been applied"),
		logging.String(logging.FieldErrorHint, "raise client.request_timeout or check server load"),
	)
}

func interpret(content bindings.ResponseContent) (bindings.ResponseSuccess, error) {
	switch v := content.(type) {
	case bindings.SuccessContent:
		return v.Content, nil
	case bindings.ErrorContent:
		return nil, &ServerError{Kind: v.Content}
	case bindings.Undelivered:
		return nil, ErrUndelivered
	}
	return nil, &ProtocolError{Err: fmt.Errorf("unexpected %q response to a request", bindings.ResponseTag(content))}
}

// expectSuccess checks that content is a success of type T.
func expectSuccess[T bindings.ResponseSuccess](content bindings.ResponseContent) error {
	success, err := interpret(content)
	if err != nil {
		return err
	}
	if _, ok := success.(T); !ok {
		var want T
		return &ProtocolError{Err: fmt.Errorf("expected %q success, got %q", bindings.SuccessTag(want), bindings.SuccessTag(success))}
	}
	return nil
}

func requestAs[T bindings.ResponseSuccess](ctx context.Context, c *Client, target bindings.Discriminator, content bindings.RequestContent) (T, error) {
	var zero T
	success, err := c.Request(ctx, target, content)
	if err != nil {
		return zero, err
	}
	v, ok := success.(T)
	if !ok {
		return zero, &ProtocolError{Err: fmt.Errorf("expected %q success, got %q", bindings.SuccessTag(zero), bindings.SuccessTag(success))}
	}
	return v, nil
}

// Close releases undelivered events, optionally drops the component, stops
// both loops, and unblocks every pending request with ErrClosed. Queued sends
// are flushed until ctx ends; whatever is still in flight then is cancelled
// and ctx's error is returned. Close is idempotent.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, ev := range c.events.close() {
			if err := ev.Release(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.cfg.DropOnClose {
			if _, err := c.Request(ctx, bindings.Discriminator{}, bindings.Drop{}); err != nil {
				errs = append(errs, fmt.Errorf("drop on close: %w", err))
			}
		}

		c.closed.Store(true)
		close(c.closing)
		c.correlator.Close()
		if err := c.listener.close(); err != nil {
			errs = append(errs, err)
		}
		if err := c.dispatcher.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush outbound requests: %w", err))
		}
		// Sends still running past ctx are cancelled here.
		c.cancel()
		c.dispatcher.wait()
		c.wg.Wait()
		c.closeErr = errors.Join(errs...)
		c.logger.Info("client closed")
	})
	return c.closeErr
}
