package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"ccanvas/bindings"
	"ccanvas/internal/logging"
)

// inboundListener owns the socket the server pushes responses and events to.
// Connections are handled one at a time, in arrival order.
type inboundListener struct {
	path string
	lock *flock.Flock
	// removeLock is set for per-client unique paths, which no other client
	// ever locks. Shared paths keep their lock file so that every client
	// contends on the same inode.
	removeLock  bool
	ln          net.Listener
	readTimeout time.Duration
	maxBytes    int64
	route       func(bindings.Response)
	logger      *slog.Logger
	metrics     *metrics

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// listenerPath resolves the socket path the client binds. Relative paths are
// made absolute because the server may run in another directory.
func listenerPath(cfg Config) (string, error) {
	path := cfg.ListenerSocket
	if cfg.UniqueListener {
		path = filepath.Join(filepath.Dir(path), "listen-"+uuid.NewString()+".sock")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ConnectionError{Op: "listen", Path: path, Err: err}
	}
	// sun_path must hold the path plus a terminating NUL.
	if limit := len(unix.RawSockaddrUnix{}.Path); len(abs) >= limit {
		return "", &ConnectionError{
			Op:   "listen",
			Path: abs,
			Err:  fmt.Errorf("socket path is %d bytes, limit is %d", len(abs), limit-1),
		}
	}
	return abs, nil
}

func newInboundListener(cfg Config, route func(bindings.Response), logger *slog.Logger, m *metrics) (*inboundListener, error) {
	path, err := listenerPath(cfg)
	if err != nil {
		return nil, err
	}
	logger = logging.NewComponentLogger(logger, "listener").With(logging.String(logging.FieldSocket, path))

	if err := unix.Access(filepath.Dir(path), unix.W_OK|unix.X_OK); err != nil {
		return nil, &ConnectionError{Op: "listen", Path: path, Err: fmt.Errorf("socket directory not writable: %w", err)}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &ConnectionError{Op: "lock", Path: lock.Path(), Err: err}
	}
	if !locked {
		return nil, &ConnectionError{Op: "listen", Path: path, Err: ErrListenerInUse}
	}

	// Holding the lock means no live client owns the socket file.
	if _, statErr := os.Lstat(path); statErr == nil {
		logger.Info("removing stale listener socket")
		if err := os.Remove(path); err != nil {
			_ = lock.Unlock()
			return nil, &ConnectionError{Op: "listen", Path: path, Err: fmt.Errorf("remove stale socket: %w", err)}
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, &ConnectionError{Op: "listen", Path: path, Err: err}
	}

	return &inboundListener{
		path:        path,
		lock:        lock,
		removeLock:  cfg.UniqueListener,
		ln:          ln,
		readTimeout: cfg.ReadTimeout,
		maxBytes:    cfg.MaxMessageBytes,
		route:       route,
		logger:      logger,
		metrics:     m,
		closing:     make(chan struct{}),
	}, nil
}

// serve runs the accept loop until close.
func (l *inboundListener) serve() {
	l.logger.Debug("listener accepting")
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			conn, err := l.ln.Accept()
			if err != nil {
				select {
				case <-l.closing:
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(l.logger, "accept failed",
					"listener_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "a response or event may have been lost"),
					logging.String(logging.FieldErrorHint, "check socket permissions"),
				)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			l.handle(conn)
		}
	}()
}

func (l *inboundListener) handle(conn net.Conn) {
	defer conn.Close()
	if l.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
	}
	payload, err := io.ReadAll(io.LimitReader(conn, l.maxBytes+1))
	if err != nil {
		l.metrics.decodeErrors.Inc()
		logging.WarnWithContext(l.logger, "read inbound message failed",
			"listener_read_failed",
			logging.Error(err),
			logging.Int("bytes", len(payload)),
			logging.String(logging.FieldImpact, "message dropped"),
			logging.String(logging.FieldErrorHint, "the server closed the connection early or exceeded the read timeout"),
		)
		return
	}
	if int64(len(payload)) > l.maxBytes {
		l.metrics.decodeErrors.Inc()
		logging.WarnWithContext(l.logger, "inbound message too large",
			"listener_message_oversize",
			logging.Int("limit", int(l.maxBytes)),
			logging.String(logging.FieldImpact, "message dropped"),
			logging.String(logging.FieldErrorHint, "raise client.max_message_bytes"),
		)
		return
	}

	resp, err := bindings.DecodeResponse(payload)
	if err != nil {
		l.metrics.decodeErrors.Inc()
		perr := &ProtocolError{Err: err, Payload: payload}
		logging.WarnWithContext(l.logger, "malformed inbound message",
			"listener_decode_failed",
			logging.Error(perr),
			logging.Int("bytes", len(payload)),
			logging.String(logging.FieldImpact, "message dropped"),
			logging.String(logging.FieldErrorHint, "check that client and server speak the same protocol version"),
		)
		return
	}
	l.route(resp)
}

// Path returns the bound socket path.
func (l *inboundListener) Path() string { return l.path }

// close stops the accept loop, removes the socket file and releases the lock.
func (l *inboundListener) close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closing)
		err = l.ln.Close()
		l.wg.Wait()
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.WarnWithContext(l.logger, "failed to remove listener socket",
				"listener_cleanup_failed",
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "stale socket file left behind"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			)
		}
		if unlockErr := l.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		if l.removeLock {
			_ = os.Remove(l.lock.Path())
		}
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
