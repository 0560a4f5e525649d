package client

import (
	"context"

	"ccanvas/bindings"
)

// SubscribeOptions refine a subscription.
type SubscribeOptions struct {
	// Priority orders subscribers of the same channel; lower runs first.
	// Nil lets the server pick.
	Priority *uint32
	// Component subscribes another component instead of this one.
	Component *bindings.Discriminator
}

// Priority is a helper for SubscribeOptions.Priority.
func Priority(p uint32) *uint32 { return &p }

// Subscribe registers interest in a channel.
func (c *Client) Subscribe(ctx context.Context, channel bindings.Subscription) error {
	return c.SubscribeWith(ctx, channel, SubscribeOptions{})
}

// SubscribeWith registers interest in a channel with a priority or on behalf
// of another component.
func (c *Client) SubscribeWith(ctx context.Context, channel bindings.Subscription, opts SubscribeOptions) error {
	_, err := requestAs[bindings.SubscribeAdded](ctx, c, bindings.Discriminator{}, bindings.Subscribe{
		Channel:   channel,
		Priority:  opts.Priority,
		Component: opts.Component,
	})
	return err
}

// SubscribeMultiple registers several channels in one request.
func (c *Client) SubscribeMultiple(ctx context.Context, subs ...bindings.PrioritizedSubscription) error {
	return c.Subscribe(ctx, bindings.Multiple{Subs: subs})
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(ctx context.Context, channel bindings.Subscription) error {
	_, err := c.Request(ctx, bindings.Discriminator{}, bindings.Unsubscribe{Channel: channel})
	return err
}

// Spawn starts command as a child of this component and returns the new
// component's discriminator.
func (c *Client) Spawn(ctx context.Context, label, command string, args ...string) (bindings.Discriminator, error) {
	return c.SpawnAt(ctx, bindings.Discriminator{}, label, command, args...)
}

// SpawnAt starts command under parent.
func (c *Client) SpawnAt(ctx context.Context, parent bindings.Discriminator, label, command string, args ...string) (bindings.Discriminator, error) {
	spawned, err := requestAs[bindings.Spawned](ctx, c, parent, bindings.Spawn{
		Command: command,
		Args:    args,
		Label:   label,
	})
	if err != nil {
		return bindings.Discriminator{}, err
	}
	return spawned.Discrim, nil
}

// Message sends content to target. When target is a space every component
// under it receives the message.
func (c *Client) Message(ctx context.Context, target bindings.Discriminator, content string) error {
	_, err := c.Request(ctx, target, bindings.Message{
		Content: content,
		Target:  target,
	})
	return err
}

// Broadcast sends content to every component of the session.
func (c *Client) Broadcast(ctx context.Context, content string) error {
	return c.Message(ctx, bindings.Master(), content)
}

// NewSpace creates a space under parent and returns its discriminator.
func (c *Client) NewSpace(ctx context.Context, parent bindings.Discriminator, label string) (bindings.Discriminator, error) {
	created, err := requestAs[bindings.SpaceCreated](ctx, c, parent, bindings.NewSpace{Label: label})
	if err != nil {
		return bindings.Discriminator{}, err
	}
	return created.Discrim, nil
}

// FocusAt focuses space.
func (c *Client) FocusAt(ctx context.Context, space bindings.Discriminator) error {
	_, err := c.Request(ctx, space, bindings.FocusAt{})
	return err
}

// Exit drops the master component, ending the whole session. Pending render
// operations are not flushed first.
func (c *Client) Exit(ctx context.Context) error {
	master := bindings.Master()
	_, err := c.Request(ctx, bindings.Discriminator{}, bindings.Drop{Discrim: &master})
	return err
}

// Render sends one render operation immediately. flush=false leaves the
// change buffered on the server until a later flush.
func (c *Client) Render(ctx context.Context, op bindings.RenderRequest, flush bool) error {
	_, err := c.Request(ctx, bindings.Discriminator{}, bindings.Render{Content: op, Flush: flush})
	return err
}

// SetCharNow draws one character and flushes.
func (c *Client) SetCharNow(ctx context.Context, x, y uint32, ch rune) error {
	return c.Render(ctx, bindings.SetChar{X: x, Y: y, C: bindings.Char(ch)}, true)
}

// SetColouredCharNow draws one coloured character and flushes.
func (c *Client) SetColouredCharNow(ctx context.Context, x, y uint32, ch rune, fg, bg bindings.Colour) error {
	return c.Render(ctx, bindings.SetColouredChar{X: x, Y: y, C: bindings.Char(ch), Fg: fg, Bg: bg}, true)
}

// SetCursorStyleNow changes the cursor style and flushes.
func (c *Client) SetCursorStyleNow(ctx context.Context, style bindings.CursorStyle) error {
	return c.Render(ctx, bindings.SetCursorStyle{Style: style}, true)
}

// HideCursorNow hides the cursor and flushes.
func (c *Client) HideCursorNow(ctx context.Context) error {
	return c.Render(ctx, bindings.HideCursor{}, true)
}

// ShowCursorNow shows the cursor and flushes.
func (c *Client) ShowCursorNow(ctx context.Context) error {
	return c.Render(ctx, bindings.ShowCursor{}, true)
}

// Batch runs fn with the client's pending render batch locked. Operations
// added by fn are sent by the next RenderAll.
func (c *Client) Batch(fn func(*RenderBatch)) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	fn(&c.batch)
}

// SetChar queues a character in the client's batch.
func (c *Client) SetChar(x, y uint32, ch rune) {
	c.Batch(func(b *RenderBatch) { b.SetChar(x, y, ch) })
}

// SetColouredChar queues a coloured character in the client's batch.
func (c *Client) SetColouredChar(x, y uint32, ch rune, fg, bg bindings.Colour) {
	c.Batch(func(b *RenderBatch) { b.SetColouredChar(x, y, ch, fg, bg) })
}

// SetCursorStyle queues a cursor style change in the client's batch.
func (c *Client) SetCursorStyle(style bindings.CursorStyle) {
	c.Batch(func(b *RenderBatch) { b.SetCursorStyle(style) })
}

// HideCursor queues hiding the cursor.
func (c *Client) HideCursor() {
	c.Batch(func(b *RenderBatch) { b.HideCursor() })
}

// ShowCursor queues showing the cursor.
func (c *Client) ShowCursor() {
	c.Batch(func(b *RenderBatch) { b.ShowCursor() })
}

// RenderAll sends the client's batch as one atomic, flushed update and clears
// it. An empty batch sends nothing.
func (c *Client) RenderAll(ctx context.Context) error {
	c.batchMu.Lock()
	ops := c.batch.Take()
	c.batchMu.Unlock()
	return c.sendBatch(ctx, ops)
}

// Draw sends b as one atomic, flushed update and clears it. An empty batch
// sends nothing.
func (c *Client) Draw(ctx context.Context, b *RenderBatch) error {
	return c.sendBatch(ctx, b.Take())
}

func (c *Client) sendBatch(ctx context.Context, ops []bindings.RenderRequest) error {
	if len(ops) == 0 {
		return nil
	}
	return c.Render(ctx, bindings.RenderMultiple{Tasks: ops}, true)
}
