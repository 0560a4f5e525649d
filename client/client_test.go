package client_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ccanvas/bindings"
	"ccanvas/client"
	"ccanvas/internal/config"
	"ccanvas/internal/logging"
	"ccanvas/internal/testsupport"
)

const waitTimeout = 2 * time.Second

type harness struct {
	cfg    *config.Config
	srv    *testsupport.FakeServer
	client *client.Client
	reg    *prometheus.Registry
}

func start(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	srv := testsupport.NewFakeServer(t, cfg.Sockets.RequestSocket)
	h := &harness{cfg: cfg, srv: srv, reg: prometheus.NewRegistry()}
	h.client = h.connect(t)
	srv.WaitFor(testsupport.OfType(bindings.TagSetSocket), waitTimeout)
	return h
}

func (h *harness) connect(t *testing.T, extra ...client.Option) *client.Client {
	t.Helper()
	opts := append([]client.Option{
		client.WithLogger(logging.NewNop()),
		client.WithIDAllocator(client.NewIDAllocator()),
		client.WithMetrics(h.reg, "test"),
	}, extra...)
	c, err := client.New(context.Background(), testsupport.ClientConfig(h.cfg), opts...)
	if err != nil {
		t.Fatalf("client.New returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestHandshakeRegistersListener(t *testing.T) {
	h := start(t)

	req := h.srv.WaitFor(testsupport.OfType(bindings.TagSetSocket), waitTimeout)
	if !req.Target().IsRoot() {
		t.Fatalf("set socket target = %v, want root", req.Target())
	}
	set := req.Content().(bindings.SetSocket)
	if set.Path != h.client.ListenerPath() {
		t.Fatalf("registered %q, client listens on %q", set.Path, h.client.ListenerPath())
	}
	if _, err := os.Stat(set.Path); err != nil {
		t.Fatalf("listener socket missing: %v", err)
	}
	if h.client.SessionID() == "" {
		t.Fatal("expected a session id")
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := client.New(context.Background(), testsupport.ClientConfig(cfg), client.WithLogger(logging.NewNop()))
	var connErr *client.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Sockets.ListenerSocket); !os.IsNotExist(statErr) {
		t.Fatalf("listener socket should be cleaned up, stat err = %v", statErr)
	}
}

func TestSubscribeSendsPriority(t *testing.T) {
	h := start(t)

	err := h.client.SubscribeWith(ctxTimeout(t), bindings.AllKeyPresses{}, client.SubscribeOptions{Priority: client.Priority(5)})
	if err != nil {
		t.Fatalf("SubscribeWith returned error: %v", err)
	}
	req := h.srv.WaitFor(testsupport.OfType(bindings.TagSubscribe), waitTimeout)
	sub := req.Content().(bindings.Subscribe)
	if _, ok := sub.Channel.(bindings.AllKeyPresses); !ok {
		t.Fatalf("channel = %#v", sub.Channel)
	}
	if sub.Priority == nil || *sub.Priority != 5 {
		t.Fatalf("priority = %v, want 5", sub.Priority)
	}
	if sub.Component != nil {
		t.Fatalf("component = %v, want nil", sub.Component)
	}

	expected := `
# HELP test_client_requests_total Requests sent to the server, by request type.
# TYPE test_client_requests_total counter
test_client_requests_total{type="set socket"} 1
test_client_requests_total{type="subscribe"} 1
`
	if err := testutil.GatherAndCompare(h.reg, strings.NewReader(expected), "test_client_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestCapturedEventIsConfirmed(t *testing.T) {
	h := start(t)
	recv, err := h.client.Receiver()
	if err != nil {
		t.Fatalf("Receiver returned error: %v", err)
	}
	if _, err := h.client.Receiver(); !errors.Is(err, client.ErrReceiverTaken) {
		t.Fatalf("expected ErrReceiverTaken, got %v", err)
	}

	key := bindings.KeyEvent{Code: bindings.CharKey('q'), Modifier: bindings.ModNone}
	if err := h.srv.PushEvent(7, key); err != nil {
		t.Fatalf("PushEvent returned error: %v", err)
	}
	ev, err := recv.Recv(ctxTimeout(t))
	if err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}
	if ev.ID() != 7 || ev.Variant() != key {
		t.Fatalf("received %d %#v", ev.ID(), ev.Variant())
	}
	if err := ev.Done(false); err != nil {
		t.Fatalf("Done returned error: %v", err)
	}

	req := h.srv.WaitFor(testsupport.OfType(bindings.TagConfirmReceive), waitTimeout)
	if got := req.Content().(bindings.ConfirmReceive); got != (bindings.ConfirmReceive{ID: 7, Pass: false}) {
		t.Fatalf("confirmation = %+v", got)
	}
	if !req.Target().IsRoot() {
		t.Fatalf("confirmation target = %v", req.Target())
	}
}

func TestHandleReleasesEvent(t *testing.T) {
	h := start(t)
	recv, _ := h.client.Receiver()

	mouse := bindings.MouseEvent{X: 3, Y: 4, Type: bindings.MouseLeft}
	if err := h.srv.PushEvent(11, mouse); err != nil {
		t.Fatalf("PushEvent returned error: %v", err)
	}
	err := recv.Handle(ctxTimeout(t), func(ev *client.Event) error {
		if ev.Variant() != mouse {
			t.Errorf("variant = %#v", ev.Variant())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	req := h.srv.WaitFor(testsupport.OfType(bindings.TagConfirmReceive), waitTimeout)
	if got := req.Content().(bindings.ConfirmReceive); got != (bindings.ConfirmReceive{ID: 11, Pass: true}) {
		t.Fatalf("confirmation = %+v", got)
	}
}

func TestRenderAllSendsOneBatch(t *testing.T) {
	h := start(t)
	ctx := ctxTimeout(t)

	h.client.SetChar(0, 0, 'a')
	h.client.SetChar(1, 0, 'b')
	h.client.HideCursor()
	if err := h.client.RenderAll(ctx); err != nil {
		t.Fatalf("RenderAll returned error: %v", err)
	}
	if err := h.client.RenderAll(ctx); err != nil {
		t.Fatalf("empty RenderAll returned error: %v", err)
	}

	if n := h.srv.Count(testsupport.OfType(bindings.TagRender)); n != 1 {
		t.Fatalf("sent %d render requests, want 1", n)
	}
	req := h.srv.WaitFor(testsupport.OfType(bindings.TagRender), waitTimeout)
	render := req.Content().(bindings.Render)
	if !render.Flush {
		t.Fatal("batched render should flush")
	}
	multi, ok := render.Content.(bindings.RenderMultiple)
	if !ok {
		t.Fatalf("render content = %#v", render.Content)
	}
	want := []bindings.RenderRequest{
		bindings.SetChar{X: 0, Y: 0, C: 'a'},
		bindings.SetChar{X: 1, Y: 0, C: 'b'},
		bindings.HideCursor{},
	}
	if len(multi.Tasks) != len(want) {
		t.Fatalf("batch has %d tasks, want %d", len(multi.Tasks), len(want))
	}
	for i := range want {
		if multi.Tasks[i] != want[i] {
			t.Fatalf("task %d = %#v, want %#v", i, multi.Tasks[i], want[i])
		}
	}
}

func TestDrawSendsCallerBatch(t *testing.T) {
	h := start(t)
	var b client.RenderBatch
	b.DrawString(0, 0, "hi", bindings.Red, bindings.Reset)
	if err := h.client.Draw(ctxTimeout(t), &b); err != nil {
		t.Fatalf("Draw returned error: %v", err)
	}
	req := h.srv.WaitFor(testsupport.OfType(bindings.TagRender), waitTimeout)
	if tasks := req.Content().(bindings.Render).Content.(bindings.RenderMultiple).Tasks; len(tasks) != 2 {
		t.Fatalf("sent %d tasks, want 2", len(tasks))
	}
	if b.Len() != 0 {
		t.Fatal("Draw should empty the batch")
	}
}

func TestExitDropsMasterWithoutFlushing(t *testing.T) {
	h := start(t)
	h.client.SetChar(0, 0, 'x')

	if err := h.client.Exit(ctxTimeout(t)); err != nil {
		t.Fatalf("Exit returned error: %v", err)
	}
	req := h.srv.WaitFor(testsupport.OfType(bindings.TagDrop), waitTimeout)
	drop := req.Content().(bindings.Drop)
	if drop.Discrim == nil || *drop.Discrim != bindings.Master() {
		t.Fatalf("drop discrim = %v, want [1]", drop.Discrim)
	}
	if !req.Target().IsRoot() {
		t.Fatalf("drop target = %v, want root", req.Target())
	}
	if n := h.srv.Count(testsupport.OfType(bindings.TagRender)); n != 0 {
		t.Fatalf("Exit flushed %d renders", n)
	}
}

func TestSpawnAndSpaces(t *testing.T) {
	h := start(t)
	ctx := ctxTimeout(t)

	child, err := h.client.Spawn(ctx, "editor", "vim", "notes.txt")
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if child != bindings.Master().Child(1) {
		t.Fatalf("spawned %v, want [1,1]", child)
	}
	spawn := h.srv.WaitFor(testsupport.OfType(bindings.TagSpawn), waitTimeout).Content().(bindings.Spawn)
	if spawn.Command != "vim" || spawn.Label != "editor" || len(spawn.Args) != 1 {
		t.Fatalf("spawn request = %+v", spawn)
	}

	space, err := h.client.NewSpace(ctx, bindings.Master(), "side")
	if err != nil {
		t.Fatalf("NewSpace returned error: %v", err)
	}
	if err := h.client.FocusAt(ctx, space); err != nil {
		t.Fatalf("FocusAt returned error: %v", err)
	}
	focus := h.srv.WaitFor(testsupport.OfType(bindings.TagFocusAt), waitTimeout)
	if focus.Target() != space {
		t.Fatalf("focus target = %v, want %v", focus.Target(), space)
	}
}

func TestMessageAndBroadcast(t *testing.T) {
	h := start(t)
	ctx := ctxTimeout(t)
	target := bindings.NewDiscriminator(1, 2)

	if err := h.client.Message(ctx, target, "ping"); err != nil {
		t.Fatalf("Message returned error: %v", err)
	}
	if err := h.client.Broadcast(ctx, "all"); err != nil {
		t.Fatalf("Broadcast returned error: %v", err)
	}

	var sawDirect, sawBroadcast bool
	for _, req := range h.srv.Requests() {
		msg, ok := req.Content().(bindings.Message)
		if !ok {
			continue
		}
		switch msg.Content {
		case "ping":
			sawDirect = req.Target() == target && msg.Target == target
		case "all":
			sawBroadcast = req.Target() == bindings.Master()
		}
	}
	if !sawDirect || !sawBroadcast {
		t.Fatalf("direct=%v broadcast=%v", sawDirect, sawBroadcast)
	}
}

func TestServerErrorsSurface(t *testing.T) {
	h := start(t)
	h.srv.Handle(func(req bindings.Request) (bindings.ResponseContent, bool) {
		switch req.Content().(type) {
		case bindings.Spawn:
			return bindings.ErrorContent{Content: bindings.SpawnFailed{}}, true
		case bindings.Message:
			return bindings.Undelivered{}, true
		case bindings.NewSpace:
			return bindings.SuccessContent{Content: bindings.Rendered{}}, true
		}
		return nil, false
	})
	ctx := ctxTimeout(t)

	_, err := h.client.Spawn(ctx, "x", "false")
	var serverErr *client.ServerError
	if !errors.As(err, &serverErr) || !errors.Is(err, bindings.SpawnFailed{}) {
		t.Fatalf("expected SpawnFailed server error, got %v", err)
	}

	if err := h.client.Message(ctx, bindings.NewDiscriminator(1, 9), "hello"); !errors.Is(err, client.ErrUndelivered) {
		t.Fatalf("expected ErrUndelivered, got %v", err)
	}

	_, err = h.client.NewSpace(ctx, bindings.Master(), "s")
	var protoErr *client.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError for mismatched success, got %v", err)
	}
}

func TestRequestTimesOut(t *testing.T) {
	h := start(t)
	h.srv.Handle(func(req bindings.Request) (bindings.ResponseContent, bool) {
		if _, ok := req.Content().(bindings.FocusAt); ok {
			return nil, true
		}
		return nil, false
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := h.client.FocusAt(ctx, bindings.Master())
	if !errors.Is(err, client.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestListenerSocketExclusive(t *testing.T) {
	h := start(t)
	_, err := client.New(context.Background(), testsupport.ClientConfig(h.cfg), client.WithLogger(logging.NewNop()))
	if !errors.Is(err, client.ErrListenerInUse) {
		t.Fatalf("expected ErrListenerInUse, got %v", err)
	}
}

func TestUniqueListenersCoexist(t *testing.T) {
	h := start(t, testsupport.WithUniqueListener())
	other := h.connect(t)
	if h.client.ListenerPath() == other.ListenerPath() {
		t.Fatalf("clients share listener %q", other.ListenerPath())
	}
	if !strings.HasPrefix(other.ListenerPath(), testsupport.BaseDir(h.cfg)) {
		t.Fatalf("unique listener %q outside %q", other.ListenerPath(), testsupport.BaseDir(h.cfg))
	}
}

func TestMalformedInboundIsDropped(t *testing.T) {
	h := start(t)
	if err := testsupport.PushRaw(h.client.ListenerPath(), []byte(`{"content":{"type":"bogus"},"id":1}`)); err != nil {
		t.Fatalf("PushRaw returned error: %v", err)
	}
	if err := h.client.Subscribe(ctxTimeout(t), bindings.ScreenResize{}); err != nil {
		t.Fatalf("client unusable after malformed input: %v", err)
	}

	expected := `
# HELP test_client_decode_errors_total Inbound messages that could not be decoded.
# TYPE test_client_decode_errors_total counter
test_client_decode_errors_total 1
`
	if err := testutil.GatherAndCompare(h.reg, strings.NewReader(expected), "test_client_decode_errors_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestCloseReleasesQueuedEvents(t *testing.T) {
	h := start(t)
	if err := h.srv.PushEvent(21, bindings.FocusedEvent{}); err != nil {
		t.Fatalf("PushEvent returned error: %v", err)
	}
	// Inbound messages are handled in order, so the event is queued once this
	// response arrives.
	if err := h.client.Subscribe(ctxTimeout(t), bindings.Focused{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	path := h.client.ListenerPath()
	if err := h.client.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	req := h.srv.WaitFor(testsupport.OfType(bindings.TagConfirmReceive), waitTimeout)
	if got := req.Content().(bindings.ConfirmReceive); got != (bindings.ConfirmReceive{ID: 21, Pass: true}) {
		t.Fatalf("confirmation = %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("listener socket left behind: %v", err)
	}
	if err := h.client.Subscribe(context.Background(), bindings.Focused{}); !errors.Is(err, client.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	if err := h.client.Close(context.Background()); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestCloseUnblocksPendingRequest(t *testing.T) {
	h := start(t)
	h.srv.Handle(func(req bindings.Request) (bindings.ResponseContent, bool) {
		if _, ok := req.Content().(bindings.FocusAt); ok {
			return nil, true
		}
		return nil, false
	})

	errs := make(chan error, 1)
	go func() { errs <- h.client.FocusAt(context.Background(), bindings.Master()) }()
	h.srv.WaitFor(testsupport.OfType(bindings.TagFocusAt), waitTimeout)

	if err := h.client.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, client.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("pending request not released by Close")
	}
}

func TestDropOnClose(t *testing.T) {
	h := start(t, testsupport.WithDropOnClose())
	if err := h.client.Close(ctxTimeout(t)); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	drop := h.srv.WaitFor(testsupport.OfType(bindings.TagDrop), waitTimeout).Content().(bindings.Drop)
	if drop.Discrim != nil {
		t.Fatalf("drop on close should be unscoped, got %v", drop.Discrim)
	}
}

// stallingSender holds render requests until their context ends and passes
// everything else to the socket sender.
type stallingSender struct {
	next     client.Sender
	stalled  chan struct{}
	returned atomic.Int32
}

func newStallingSender(requestSocket string) *stallingSender {
	return &stallingSender{
		next:    client.NewSocketSender(requestSocket, time.Second),
		stalled: make(chan struct{}, 16),
	}
}

func (s *stallingSender) Send(ctx context.Context, req bindings.Request) error {
	if _, ok := req.Content().(bindings.Render); !ok {
		return s.next.Send(ctx, req)
	}
	s.stalled <- struct{}{}
	<-ctx.Done()
	s.returned.Add(1)
	return ctx.Err()
}

func startStalled(t *testing.T) (*harness, *stallingSender) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewFakeServer(t, cfg.Sockets.RequestSocket)
	h := &harness{cfg: cfg, srv: srv, reg: prometheus.NewRegistry()}
	sender := newStallingSender(cfg.Sockets.RequestSocket)
	h.client = h.connect(t, client.WithSender(sender))
	srv.WaitFor(testsupport.OfType(bindings.TagSetSocket), waitTimeout)
	return h, sender
}

func TestUnsentRequestTimesOut(t *testing.T) {
	h, sender := startStalled(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := h.client.HideCursorNow(ctx)
	if !errors.Is(err, client.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrTimeout wrapping DeadlineExceeded, got %v", err)
	}
	select {
	case <-sender.stalled:
	default:
		t.Fatal("render never reached the sender")
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelClose()
	_ = h.client.Close(closeCtx)
}

func TestCloseCancelsStuckSends(t *testing.T) {
	h, sender := startStalled(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := h.client.ShowCursorNow(ctx); !errors.Is(err, client.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelClose()
	done := make(chan error, 1)
	go func() { done <- h.client.Close(closeCtx) }()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected Close to report its deadline, got %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Close ignored its deadline while a send was stuck")
	}
	if n := sender.returned.Load(); n != 1 {
		t.Fatalf("stuck send returned %d times, want 1", n)
	}
}

func TestListenerLockFileReused(t *testing.T) {
	h := start(t)
	if err := h.client.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	lockPath := h.cfg.Sockets.ListenerSocket + ".lock"
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("shared lock file should stay in place: %v", err)
	}

	next := h.connect(t)
	if next.ListenerPath() != h.cfg.Sockets.ListenerSocket {
		t.Fatalf("reconnected on %q, want %q", next.ListenerPath(), h.cfg.Sockets.ListenerSocket)
	}
}

func TestUniqueListenerRemovesLockFile(t *testing.T) {
	h := start(t, testsupport.WithUniqueListener())
	path := h.client.ListenerPath()
	if err := h.client.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("unique lock file left behind: %v", err)
	}
}
