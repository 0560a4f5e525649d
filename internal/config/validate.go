package config

import (
	"errors"
	"fmt"
	"regexp"
)

var metricNamespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSockets(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateMetrics()
}

func (c *Config) validateSockets() error {
	if c.Sockets.RequestSocket == "" {
		return errors.New("sockets.request_socket must be set")
	}
	if c.Sockets.ListenerSocket == "" {
		return errors.New("sockets.listener_socket must be set")
	}
	if c.Sockets.RequestSocket == c.Sockets.ListenerSocket {
		return fmt.Errorf("sockets.request_socket and sockets.listener_socket must differ (both %q)", c.Sockets.RequestSocket)
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.RequestTimeout < 0 {
		return errors.New("client.request_timeout must be zero (no limit) or positive")
	}
	if c.Client.DialTimeout <= 0 {
		return errors.New("client.dial_timeout must be positive")
	}
	if c.Client.ReadTimeout <= 0 {
		return errors.New("client.read_timeout must be positive")
	}
	if c.Client.HandshakeTimeout <= 0 {
		return errors.New("client.handshake_timeout must be positive")
	}
	if c.Client.MaxMessageBytes < 1024 {
		return fmt.Errorf("client.max_message_bytes must be at least 1024, got %d", c.Client.MaxMessageBytes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !metricNamespacePattern.MatchString(c.Metrics.Namespace) {
		return fmt.Errorf("metrics.namespace %q is not a valid metric name prefix", c.Metrics.Namespace)
	}
	return nil
}
