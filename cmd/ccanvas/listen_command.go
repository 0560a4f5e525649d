package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ccanvas/bindings"
	"ccanvas/client"
)

type listenOptions struct {
	keys      bool
	mouse     bool
	messages  bool
	resize    bool
	focus     bool
	capture   bool
	quitKey   string
	maxEvents int
}

func (o listenOptions) subscriptions() []bindings.PrioritizedSubscription {
	var subs []bindings.PrioritizedSubscription
	add := func(s bindings.Subscription) {
		subs = append(subs, bindings.PrioritizedSubscription{Channel: s})
	}
	if o.keys {
		add(bindings.AllKeyPresses{})
	}
	if o.mouse {
		add(bindings.AllMouseEvents{})
	}
	if o.messages {
		add(bindings.AllMessages{})
	}
	if o.resize {
		add(bindings.ScreenResize{})
	}
	if o.focus {
		add(bindings.Focused{})
		add(bindings.Unfocused{})
	}
	if len(subs) == 0 {
		add(bindings.AllKeyPresses{})
	}
	return subs
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	var opts listenOptions

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to events and print them",
		Long: "Subscribe to events and print one line per event. Output is colored text on a\n" +
			"terminal and JSON lines otherwise. Key presses are subscribed when no channel\n" +
			"flag is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var quit *bindings.KeyCode
			if strings.TrimSpace(opts.quitKey) != "" {
				code, err := bindings.ParseKeyCode(opts.quitKey)
				if err != nil {
					return fmt.Errorf("--quit-key: %w", err)
				}
				quit = &code
			}
			return ctx.withClient(cmd, func(runCtx context.Context, c *client.Client) error {
				return runListen(runCtx, cmd, c, opts, quit, ctx.flags.json)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.keys, "keys", false, "Subscribe to every key press")
	cmd.Flags().BoolVar(&opts.mouse, "mouse", false, "Subscribe to every mouse event")
	cmd.Flags().BoolVar(&opts.messages, "messages", false, "Subscribe to messages from other components")
	cmd.Flags().BoolVar(&opts.resize, "resize", false, "Subscribe to terminal resizes")
	cmd.Flags().BoolVar(&opts.focus, "focus", false, "Subscribe to focus changes")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Capture events so lower priority subscribers never see them")
	cmd.Flags().StringVar(&opts.quitKey, "quit-key", "", "Key that ends the session, e.g. q or esc")
	cmd.Flags().IntVar(&opts.maxEvents, "max-events", 0, "Stop after this many events (0 runs until interrupted)")
	return cmd
}

func runListen(ctx context.Context, cmd *cobra.Command, c *client.Client, opts listenOptions, quit *bindings.KeyCode, forceJSON bool) error {
	recv, err := c.Receiver()
	if err != nil {
		return err
	}
	if err := c.SubscribeMultiple(ctx, opts.subscriptions()...); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	asJSON := forceJSON || !colorize
	enc := json.NewEncoder(out)

	for seen := 0; opts.maxEvents == 0 || seen < opts.maxEvents; seen++ {
		quitting := false
		err := recv.Handle(ctx, func(ev *client.Event) error {
			if asJSON {
				if err := enc.Encode(eventRecord{ID: ev.ID(), Event: ev.Variant()}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, formatEvent(ev.ID(), ev.Variant(), colorize))
			}
			if key, ok := ev.Variant().(bindings.KeyEvent); ok && quit != nil && key.Code == *quit {
				quitting = true
			}
			if opts.capture {
				return ev.Done(false)
			}
			return nil
		})
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, client.ErrClosed):
			return nil
		case err != nil:
			return err
		}
		if quitting {
			return c.Exit(ctx)
		}
	}
	return nil
}
