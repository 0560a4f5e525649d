// Package client connects a component to a ccanvas compositor server.
//
// Requests go out over the server's request socket, one connection per
// request. Responses and events come back on a listener socket owned by the
// client, and are matched to their requests by id. Every event must be
// confirmed exactly once; Receiver.Handle takes care of that.
//
//	c, err := client.New(ctx, client.DefaultConfig(), client.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer c.Close(context.Background())
//
//	if err := c.Subscribe(ctx, bindings.AllKeyPresses{}); err != nil {
//		return err
//	}
//	rx, _ := c.Receiver()
//	for {
//		err := rx.Handle(ctx, func(ev *client.Event) error {
//			key, ok := ev.Variant().(bindings.KeyEvent)
//			if ok && key.Code == bindings.CharKey('q') {
//				return c.Exit(ctx)
//			}
//			c.SetChar(0, 0, 'a')
//			return c.RenderAll(ctx)
//		})
//		if err != nil {
//			return err
//		}
//	}
package client
