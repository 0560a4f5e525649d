package client

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Default socket names, relative to the working directory the server starts
// components in.
const (
	DefaultRequestSocket  = "requests.sock"
	DefaultListenerSocket = "listen.sock"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	defaultDialTimeout      = 2 * time.Second
	defaultReadTimeout      = 5 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
	defaultMaxMessageBytes  = 1 << 20
)

// Config describes how a client reaches the server.
//
// A zero duration for RequestTimeout means requests wait until their context
// ends. Zero values for the other fields take the defaults from DefaultConfig.
type Config struct {
	RequestSocket  string
	ListenerSocket string
	// UniqueListener binds listen-<uuid>.sock next to ListenerSocket instead
	// of ListenerSocket itself, so several clients can share a directory.
	UniqueListener bool

	RequestTimeout   time.Duration
	DialTimeout      time.Duration
	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
	MaxMessageBytes  int64

	// DropOnClose sends an unscoped drop when the client closes, removing the
	// component from the server.
	DropOnClose bool
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		RequestSocket:    DefaultRequestSocket,
		ListenerSocket:   DefaultListenerSocket,
		RequestTimeout:   defaultRequestTimeout,
		DialTimeout:      defaultDialTimeout,
		ReadTimeout:      defaultReadTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		MaxMessageBytes:  defaultMaxMessageBytes,
	}
}

func (c Config) withDefaults() Config {
	c.RequestSocket = strings.TrimSpace(c.RequestSocket)
	c.ListenerSocket = strings.TrimSpace(c.ListenerSocket)
	if c.RequestSocket == "" {
		c.RequestSocket = DefaultRequestSocket
	}
	if c.ListenerSocket == "" {
		c.ListenerSocket = DefaultListenerSocket
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = defaultMaxMessageBytes
	}
	return c
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.RequestSocket == c.ListenerSocket && c.RequestSocket != "" {
		errs = append(errs, fmt.Errorf("request and listener sockets must differ (both %q)", c.RequestSocket))
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"request timeout", c.RequestTimeout},
		{"dial timeout", c.DialTimeout},
		{"read timeout", c.ReadTimeout},
		{"handshake timeout", c.HandshakeTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", timeout.name))
		}
	}
	if c.MaxMessageBytes < 0 {
		errs = append(errs, errors.New("max message bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// Option customizes a client.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	ids            *IDAllocator
	sender         Sender
	registerer     prometheus.Registerer
	namespace      string
	tracerProvider trace.TracerProvider
	sessionID      string
}

// WithLogger sets the logger. The default discards output. Request ids on
// timeout and send failures are read from the context, so only handlers that
// look at it (such as those built by logging.New) record them.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIDAllocator shares an allocator between clients.
func WithIDAllocator(ids *IDAllocator) Option {
	return func(o *options) { o.ids = ids }
}

// WithSender replaces the socket sender.
func WithSender(sender Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithMetrics registers the client's collectors with reg under namespace.
// Without it the collectors live in a private registry.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(o *options) {
		o.registerer = reg
		o.namespace = namespace
	}
}

// WithTracerProvider sets the provider for request spans. The default is the
// global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithSessionID overrides the generated session id attached to log lines.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}
