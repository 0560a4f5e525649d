package testsupport

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"ccanvas/bindings"
)

// Handler decides the reply to a request. Returning ok=false falls back to
// DefaultReply; returning a nil content with ok=true sends nothing.
type Handler func(req bindings.Request) (content bindings.ResponseContent, ok bool)

// FakeServer is an in-process stand-in for the compositor. It accepts
// requests on the request socket, records them, and answers on the socket the
// client registered with "set socket".
type FakeServer struct {
	t    testing.TB
	path string
	ln   net.Listener

	mu       sync.Mutex
	requests []bindings.Request
	listener string
	handler  Handler
	nextID   uint32
	children map[bindings.Discriminator]uint32
	changed  chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewFakeServer listens on requestSocket and stops when the test ends.
func NewFakeServer(t testing.TB, requestSocket string) *FakeServer {
	t.Helper()
	_ = os.Remove(requestSocket)
	ln, err := net.Listen("unix", requestSocket)
	if err != nil {
		t.Fatalf("fake server listen: %v", err)
	}
	s := &FakeServer{
		t:        t,
		path:     requestSocket,
		ln:       ln,
		nextID:   1000,
		children: make(map[bindings.Discriminator]uint32),
		changed:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Handle installs h for every following request.
func (s *FakeServer) Handle(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *FakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *FakeServer) handle(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	payload, err := io.ReadAll(conn)
	conn.Close()
	if err != nil {
		s.t.Errorf("fake server read: %v", err)
		return
	}
	var req bindings.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.t.Errorf("fake server decode %s: %v", payload, err)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	if set, ok := req.Content().(bindings.SetSocket); ok {
		s.listener = set.Path
	}
	handler := s.handler
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	var content bindings.ResponseContent
	handled := false
	if handler != nil {
		content, handled = handler(req)
	}
	if !handled {
		content = s.DefaultReply(req)
	}
	if content == nil {
		return
	}
	id := req.ID()
	if err := s.Push(bindings.Response{Content: content, ID: s.responseID(), Request: &id}); err != nil {
		s.t.Logf("fake server reply to %d: %v", id, err)
	}
}

func (s *FakeServer) responseID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// DefaultReply returns the success a well-behaved server sends for req.
// Confirmations get no reply.
func (s *FakeServer) DefaultReply(req bindings.Request) bindings.ResponseContent {
	var success bindings.ResponseSuccess
	switch req.Content().(type) {
	case bindings.ConfirmReceive:
		return nil
	case bindings.SetSocket:
		success = bindings.ListenerSet{}
	case bindings.Subscribe, bindings.Unsubscribe:
		success = bindings.SubscribeAdded{}
	case bindings.Drop:
		success = bindings.Dropped{}
	case bindings.Render:
		success = bindings.Rendered{}
	case bindings.Spawn:
		success = bindings.Spawned{Discrim: s.child(req.Target())}
	case bindings.Message:
		success = bindings.MessageDelivered{}
	case bindings.NewSpace:
		success = bindings.SpaceCreated{Discrim: s.child(req.Target())}
	case bindings.FocusAt:
		success = bindings.FocusChanged{}
	default:
		return bindings.Undelivered{}
	}
	return bindings.SuccessContent{Content: success}
}

func (s *FakeServer) child(parent bindings.Discriminator) bindings.Discriminator {
	if parent.IsRoot() {
		parent = bindings.Master()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[parent]++
	return parent.Child(s.children[parent])
}

// Push delivers resp to the client's listener socket.
func (s *FakeServer) Push(resp bindings.Response) error {
	s.mu.Lock()
	path := s.listener
	s.mu.Unlock()
	if path == "" {
		return errors.New("fake server: no listener registered")
	}
	return PushTo(path, resp)
}

// PushEvent delivers an event with the given server-side id.
func (s *FakeServer) PushEvent(id uint32, ev bindings.EventVariant) error {
	return s.Push(bindings.Response{Content: bindings.EventContent{Content: ev}, ID: id})
}

// PushTo writes resp to the socket at path as one message.
func PushTo(path string, resp bindings.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return PushRaw(path, payload)
}

// PushRaw writes payload to the socket at path as one message.
func PushRaw(path string, payload []byte) error {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return err
	}
	return conn.(*net.UnixConn).CloseWrite()
}

// ListenerPath returns the socket registered by the last "set socket".
func (s *FakeServer) ListenerPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Requests returns every request received so far, in arrival order.
func (s *FakeServer) Requests() []bindings.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bindings.Request(nil), s.requests...)
}

// WaitFor blocks until a received request satisfies match and returns it.
// The test fails after timeout.
func (s *FakeServer) WaitFor(match func(bindings.Request) bool, timeout time.Duration) bindings.Request {
	s.t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		s.mu.Lock()
		for _, req := range s.requests {
			if match(req) {
				s.mu.Unlock()
				return req
			}
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			s.t.Fatalf("fake server: no matching request within %v", timeout)
			return bindings.Request{}
		}
	}
}

// Count returns how many received requests satisfy match.
func (s *FakeServer) Count(match func(bindings.Request) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if match(req) {
			n++
		}
	}
	return n
}

// OfType matches requests whose content has the given wire tag.
func OfType(tag string) func(bindings.Request) bool {
	return func(req bindings.Request) bool {
		return bindings.RequestTag(req.Content()) == tag
	}
}

// Close stops the server and waits for in-flight connections.
func (s *FakeServer) Close() {
	s.closeOnce.Do(func() {
		_ = s.ln.Close()
		s.wg.Wait()
		_ = os.Remove(s.path)
	})
}
