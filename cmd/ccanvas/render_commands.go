package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ccanvas/bindings"
	"ccanvas/client"
)

func newDrawCommand(ctx *commandContext) *cobra.Command {
	var x, y uint32
	var fgFlag, bgFlag string

	cmd := &cobra.Command{
		Use:   "draw TEXT",
		Short: "Draw text as one atomic update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fg, err := bindings.ParseColour(fgFlag)
			if err != nil {
				return fmt.Errorf("--fg: %w", err)
			}
			bg, err := bindings.ParseColour(bgFlag)
			if err != nil {
				return fmt.Errorf("--bg: %w", err)
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				var cells int
				c.Batch(func(b *client.RenderBatch) {
					b.DrawString(x, y, args[0], fg, bg)
					cells = b.Len()
				})
				if err := c.RenderAll(runCtx); err != nil {
					return fmt.Errorf("render: %w", err)
				}
				if ctx.flags.json {
					return writeJSON(cmd, map[string]int{"cells": cells})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Drew %d cells\n", cells)
				return nil
			})
		},
	}

	cmd.Flags().Uint32Var(&x, "x", 0, "Column of the first character")
	cmd.Flags().Uint32Var(&y, "y", 0, "Row of the first character")
	cmd.Flags().StringVar(&fgFlag, "fg", "reset", "Foreground colour: a name, ansi:N or #rrggbb")
	cmd.Flags().StringVar(&bgFlag, "bg", "reset", "Background colour: a name, ansi:N or #rrggbb")
	return cmd
}

func newCursorCommand(ctx *commandContext) *cobra.Command {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Control the terminal cursor",
	}

	cursorCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.ShowCursorNow(runCtx)
			})
		},
	})
	cursorCmd.AddCommand(&cobra.Command{
		Use:   "hide",
		Short: "Hide the cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.HideCursorNow(runCtx)
			})
		},
	})
	cursorCmd.AddCommand(&cobra.Command{
		Use:   "style STYLE",
		Short: "Set the cursor style",
		Long:  "Set the cursor style: (blinking|steady) (bar|block|underline), e.g. \"steady bar\".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			style := bindings.CursorStyle(strings.ToLower(strings.Join(args, " ")))
			if !style.Valid() {
				return fmt.Errorf("unknown cursor style %q", style)
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return c.SetCursorStyleNow(runCtx, style)
			})
		},
	})
	return cursorCmd
}
