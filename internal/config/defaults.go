package config

import "ccanvas/client"

// Environment variables that override file values.
const (
	EnvRequestSocket  = "CCANVAS_REQUEST_SOCKET"
	EnvListenerSocket = "CCANVAS_LISTENER_SOCKET"
	EnvLogLevel       = "CCANVAS_LOG_LEVEL"
)

const (
	defaultRequestTimeout   = 10
	defaultDialTimeout      = 2
	defaultReadTimeout      = 5
	defaultHandshakeTimeout = 5
	defaultMaxMessageBytes  = 1 << 20
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultMetricsNamespace = "ccanvas"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Sockets: Sockets{
			RequestSocket:  client.DefaultRequestSocket,
			ListenerSocket: client.DefaultListenerSocket,
		},
		Client: Client{
			RequestTimeout:   defaultRequestTimeout,
			DialTimeout:      defaultDialTimeout,
			ReadTimeout:      defaultReadTimeout,
			HandshakeTimeout: defaultHandshakeTimeout,
			MaxMessageBytes:  defaultMaxMessageBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Namespace: defaultMetricsNamespace,
		},
	}
}
