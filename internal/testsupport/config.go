package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ccanvas/client"
	"ccanvas/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// SocketDir returns a fresh short directory for sockets. t.TempDir paths can
// exceed the sun_path limit for long test names.
func SocketDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ccanvas-")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// NewConfig produces a config whose sockets live in a unique temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := SocketDir(t)
	cfgVal := config.Default()
	cfgVal.Sockets.RequestSocket = filepath.Join(base, "requests.sock")
	cfgVal.Sockets.ListenerSocket = filepath.Join(base, "listen.sock")
	cfgVal.Client.RequestTimeout = 2
	cfgVal.Client.ReadTimeout = 1

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithUniqueListener makes clients bind listen-<uuid>.sock.
func WithUniqueListener() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sockets.UniqueListener = true
	}
}

// WithDropOnClose enables the drop request sent by Close.
func WithDropOnClose() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Client.DropOnClose = true
	}
}

// BaseDir returns the directory holding the config's sockets.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Sockets.RequestSocket)
}

// ClientConfig converts cfg with sub-second timeouts so failing tests end
// quickly.
func ClientConfig(cfg *config.Config) client.Config {
	cc := cfg.ClientConfig()
	cc.RequestTimeout = 2 * time.Second
	cc.DialTimeout = 500 * time.Millisecond
	cc.ReadTimeout = time.Second
	cc.HandshakeTimeout = time.Second
	return cc
}
