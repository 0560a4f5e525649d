package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ccanvas/client"
)

//go:embed sample_config.toml
var sampleConfig string

// Sockets names the two Unix sockets shared with the server.
type Sockets struct {
	RequestSocket  string `toml:"request_socket"`
	ListenerSocket string `toml:"listener_socket"`
	UniqueListener bool   `toml:"unique_listener"`
}

// Client contains request timing and message limits. Durations are seconds.
type Client struct {
	RequestTimeout   int   `toml:"request_timeout"`
	DialTimeout      int   `toml:"dial_timeout"`
	ReadTimeout      int   `toml:"read_timeout"`
	HandshakeTimeout int   `toml:"handshake_timeout"`
	MaxMessageBytes  int64 `toml:"max_message_bytes"`
	DropOnClose      bool  `toml:"drop_on_close"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics controls the Prometheus collectors.
type Metrics struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Config encapsulates all configuration values for a ccanvas client.
type Config struct {
	Sockets Sockets `toml:"sockets"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ccanvas/config.toml")
}

// Load locates, parses, and validates a configuration file. It also reports
// the resolved path and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ccanvas.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// applyEnv overrides file values with CCANVAS_* environment variables.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(EnvRequestSocket); ok && strings.TrimSpace(value) != "" {
		c.Sockets.RequestSocket = value
	}
	if value, ok := os.LookupEnv(EnvListenerSocket); ok && strings.TrimSpace(value) != "" {
		c.Sockets.ListenerSocket = value
	}
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

// Overrides carries command-line values that take precedence over the file
// and the environment. Empty fields leave the loaded value alone.
type Overrides struct {
	RequestSocket  string
	ListenerSocket string
	UniqueListener bool
	LogLevel       string
}

// Apply merges o into c and re-validates the result.
func (c *Config) Apply(o Overrides) error {
	if strings.TrimSpace(o.RequestSocket) != "" {
		c.Sockets.RequestSocket = o.RequestSocket
	}
	if strings.TrimSpace(o.ListenerSocket) != "" {
		c.Sockets.ListenerSocket = o.ListenerSocket
	}
	if o.UniqueListener {
		c.Sockets.UniqueListener = true
	}
	if strings.TrimSpace(o.LogLevel) != "" {
		c.Logging.Level = o.LogLevel
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// ClientConfig converts the file settings into client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		RequestSocket:    c.Sockets.RequestSocket,
		ListenerSocket:   c.Sockets.ListenerSocket,
		UniqueListener:   c.Sockets.UniqueListener,
		RequestTimeout:   seconds(c.Client.RequestTimeout),
		DialTimeout:      seconds(c.Client.DialTimeout),
		ReadTimeout:      seconds(c.Client.ReadTimeout),
		HandshakeTimeout: seconds(c.Client.HandshakeTimeout),
		MaxMessageBytes:  c.Client.MaxMessageBytes,
		DropOnClose:      c.Client.DropOnClose,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
