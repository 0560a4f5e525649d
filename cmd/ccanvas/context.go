package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ccanvas/client"
	"ccanvas/internal/config"
	"ccanvas/internal/logging"
)

const closeTimeout = 2 * time.Second

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Apply(config.Overrides{
			RequestSocket:  c.flags.requestSocket,
			ListenerSocket: c.flags.listenerSocket,
			UniqueListener: c.flags.uniqueListener,
			LogLevel:       c.flags.logLevel,
		}); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
}

// withClient connects a client for the duration of fn. SIGINT and SIGTERM
// cancel the context passed to fn.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []client.Option{client.WithLogger(logger)}
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		opts = append(opts, client.WithMetrics(registry, cfg.Metrics.Namespace))
	}
	cl, err := client.New(ctx, cfg.ClientConfig(), opts...)
	if err != nil {
		return wrapDialError(err, cfg.Sockets.RequestSocket)
	}
	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), closeTimeout)
		defer cancelClose()
		if closeErr := cl.Close(closeCtx); closeErr != nil {
			logger.Warn("close client", logging.Error(closeErr))
		}
		// The CLI exits right after, so collectors are reported once on
		// stderr instead of being served.
		if registry != nil {
			if reportErr := reportMetrics(cmd.ErrOrStderr(), registry, c.flags.json); reportErr != nil {
				logger.Warn("report metrics", logging.Error(reportErr))
			}
		}
	}()
	return fn(ctx, cl)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, client.ErrListenerInUse):
		return fmt.Errorf("connect to server: %w; pass --unique-listener to run several clients from one directory", err)
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to server: socket %s not found; run ccanvas from the server's working directory or pass --request-socket", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to server: socket %s refused the connection; verify the server is running", socket)
	default:
		return fmt.Errorf("connect to server: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
