package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ccanvas/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init [PATH]",
		Short:       "Create a sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				expanded, err := config.ExpandPath(strings.TrimSpace(args[0]))
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			} else {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, cfg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, configRows(cfg)))
			return nil
		},
	}
}

func configRows(cfg *config.Config) [][]string {
	secs := func(n int) string {
		if n == 0 {
			return "none"
		}
		return strconv.Itoa(n) + "s"
	}
	return [][]string{
		{"sockets.request_socket", cfg.Sockets.RequestSocket},
		{"sockets.listener_socket", cfg.Sockets.ListenerSocket},
		{"sockets.unique_listener", strconv.FormatBool(cfg.Sockets.UniqueListener)},
		{"client.request_timeout", secs(cfg.Client.RequestTimeout)},
		{"client.dial_timeout", secs(cfg.Client.DialTimeout)},
		{"client.read_timeout", secs(cfg.Client.ReadTimeout)},
		{"client.handshake_timeout", secs(cfg.Client.HandshakeTimeout)},
		{"client.max_message_bytes", strconv.FormatInt(cfg.Client.MaxMessageBytes, 10)},
		{"client.drop_on_close", strconv.FormatBool(cfg.Client.DropOnClose)},
		{"logging.format", cfg.Logging.Format},
		{"logging.level", cfg.Logging.Level},
		{"metrics.enabled", strconv.FormatBool(cfg.Metrics.Enabled)},
		{"metrics.namespace", cfg.Metrics.Namespace},
	}
}
