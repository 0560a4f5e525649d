package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ccanvas/bindings"
	"ccanvas/client"
)

func parseDiscrimArg(flag, value string) (bindings.Discriminator, error) {
	d, err := bindings.ParseDiscriminator(value)
	if err != nil {
		return bindings.Discriminator{}, fmt.Errorf("%s: %w", flag, err)
	}
	return d, nil
}

func printDiscrim(cmd *cobra.Command, asJSON bool, key string, d bindings.Discriminator) error {
	if asJSON {
		return writeJSON(cmd, map[string]bindings.Discriminator{key: d})
	}
	fmt.Fprintln(cmd.OutOrStdout(), displayDiscrim(d))
	return nil
}

func newSpawnCommand(ctx *commandContext) *cobra.Command {
	var parentFlag string

	cmd := &cobra.Command{
		Use:   "spawn LABEL COMMAND [ARGS...]",
		Short: "Start a component and print its discriminator",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseDiscrimArg("--parent", parentFlag)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				spawned, err := c.SpawnAt(runCtx, parent, args[0], args[1], args[2:]...)
				if err != nil {
					return fmt.Errorf("spawn %s: %w", args[1], err)
				}
				return printDiscrim(cmd, ctx.flags.json, "discrim", spawned)
			})
		},
	}
	cmd.Flags().StringVar(&parentFlag, "parent", "", "Space to spawn into, e.g. 1.2 (default: this component)")
	// Everything after COMMAND belongs to the spawned program.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newSpaceCommand(ctx *commandContext) *cobra.Command {
	spaceCmd := &cobra.Command{
		Use:   "space",
		Short: "Create and focus spaces",
	}

	var parentFlag string
	newCmd := &cobra.Command{
		Use:   "new LABEL",
		Short: "Create a space and print its discriminator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseDiscrimArg("--parent", parentFlag)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				created, err := c.NewSpace(runCtx, parent, args[0])
				if err != nil {
					return fmt.Errorf("create space: %w", err)
				}
				return printDiscrim(cmd, ctx.flags.json, "discrim", created)
			})
		},
	}
	newCmd.Flags().StringVar(&parentFlag, "parent", "1", "Parent space")
	spaceCmd.AddCommand(newCmd)

	spaceCmd.AddCommand(&cobra.Command{
		Use:   "focus SPACE",
		Short: "Focus a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space, err := parseDiscrimArg("SPACE", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.FocusAt(runCtx, space)
			})
		},
	})
	return spaceCmd
}

func newMessageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "message TARGET CONTENT",
		Short: "Send a message to a component or every component in a space",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDiscrimArg("TARGET", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.Message(runCtx, target, args[1])
			})
		},
	}
}

func newBroadcastCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast CONTENT",
		Short: "Send a message to every component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.Broadcast(runCtx, args[0])
			})
		},
	}
}

func newExitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "End the whole ccanvas session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.Exit(runCtx)
			})
		},
	}
}
