package main

import (
	"github.com/spf13/cobra"
)

type globalFlags struct {
	config         string
	requestSocket  string
	listenerSocket string
	uniqueListener bool
	logLevel       string
	json           bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "ccanvas",
		Short:         "Talk to a ccanvas server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.requestSocket, "request-socket", "", "Server request socket (overrides config)")
	pf.StringVar(&flags.listenerSocket, "listener-socket", "", "Socket to receive responses on (overrides config)")
	pf.BoolVar(&flags.uniqueListener, "unique-listener", false, "Bind a uniquely named listener socket")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.json, "json", false, "Write JSON output")

	rootCmd.AddCommand(newListenCommand(ctx))
	rootCmd.AddCommand(newDrawCommand(ctx))
	rootCmd.AddCommand(newCursorCommand(ctx))
	rootCmd.AddCommand(newSpawnCommand(ctx))
	rootCmd.AddCommand(newSpaceCommand(ctx))
	rootCmd.AddCommand(newMessageCommand(ctx))
	rootCmd.AddCommand(newBroadcastCommand(ctx))
	rootCmd.AddCommand(newExitCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
