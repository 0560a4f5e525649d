package config

import (
	"fmt"
	"strings"

	"ccanvas/client"
)

func (c *Config) normalize() error {
	if err := c.normalizeSockets(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeMetrics()
	return nil
}

func (c *Config) normalizeSockets() error {
	var err error
	if strings.TrimSpace(c.Sockets.RequestSocket) == "" {
		c.Sockets.RequestSocket = client.DefaultRequestSocket
	}
	if strings.TrimSpace(c.Sockets.ListenerSocket) == "" {
		c.Sockets.ListenerSocket = client.DefaultListenerSocket
	}
	if c.Sockets.RequestSocket, err = expandPath(strings.TrimSpace(c.Sockets.RequestSocket)); err != nil {
		return fmt.Errorf("sockets.request_socket: %w", err)
	}
	if c.Sockets.ListenerSocket, err = expandPath(strings.TrimSpace(c.Sockets.ListenerSocket)); err != nil {
		return fmt.Errorf("sockets.listener_socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.Namespace = strings.TrimSpace(c.Metrics.Namespace)
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaultMetricsNamespace
	}
}
