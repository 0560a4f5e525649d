package client

import (
	"errors"
	"fmt"

	"ccanvas/bindings"
)

var (
	// ErrUndelivered is returned when the server could not deliver a request
	// to its target.
	ErrUndelivered = errors.New("ccanvas: request undelivered")
	// ErrTimeout is returned when a response does not arrive in time. It is
	// always joined with context.DeadlineExceeded.
	ErrTimeout = errors.New("ccanvas: request timed out")
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("ccanvas: client closed")
	// ErrReceiverTaken is returned when the event receiver was already handed out.
	ErrReceiverTaken = errors.New("ccanvas: event receiver already taken")
	// ErrIDSpaceExhausted is returned once every request id has been issued.
	ErrIDSpaceExhausted = errors.New("ccanvas: request id space exhausted")
	// ErrListenerInUse means another live client owns the listener socket path.
	ErrListenerInUse = errors.New("ccanvas: listener socket in use")
)

// ConnectionError reports a failure to bind, connect to, or write to a socket.
type ConnectionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ccanvas: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a message that could not be decoded or did not fit
// the request it answered.
type ProtocolError struct {
	Err     error
	Payload []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ccanvas: protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerError is an explicit error response from the server.
// errors.Is(err, bindings.ComponentNotFound{}) matches through it.
type ServerError struct {
	Kind bindings.ResponseError
}

func (e *ServerError) Error() string {
	if e.Kind == nil {
		return "ccanvas: server error"
	}
	return "ccanvas: server error: " + e.Kind.Error()
}

func (e *ServerError) Unwrap() error { return e.Kind }
