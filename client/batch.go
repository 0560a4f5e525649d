package client

import (
	"unicode"

	"golang.org/x/text/width"

	"ccanvas/bindings"
)

// RenderBatch collects render operations in order so they can be applied by
// the server as one atomic update. A RenderBatch is not safe for concurrent
// use; the Client guards its own batch.
type RenderBatch struct {
	ops []bindings.RenderRequest
}

// SetChar writes c at (x, y).
func (b *RenderBatch) SetChar(x, y uint32, c rune) {
	b.ops = append(b.ops, bindings.SetChar{X: x, Y: y, C: bindings.Char(c)})
}

// SetColouredChar writes c at (x, y) with the given colours.
func (b *RenderBatch) SetColouredChar(x, y uint32, c rune, fg, bg bindings.Colour) {
	b.ops = append(b.ops, bindings.SetColouredChar{X: x, Y: y, C: bindings.Char(c), Fg: fg, Bg: bg})
}

// SetCursorStyle changes the cursor style.
func (b *RenderBatch) SetCursorStyle(style bindings.CursorStyle) {
	b.ops = append(b.ops, bindings.SetCursorStyle{Style: style})
}

// HideCursor hides the cursor.
func (b *RenderBatch) HideCursor() {
	b.ops = append(b.ops, bindings.HideCursor{})
}

// ShowCursor shows the cursor.
func (b *RenderBatch) ShowCursor() {
	b.ops = append(b.ops, bindings.ShowCursor{})
}

// FlushTerminal asks the terminal itself to flush. Rarely needed.
func (b *RenderBatch) FlushTerminal() {
	b.ops = append(b.ops, bindings.Flush{})
}

// DrawString writes s starting at (x, y), one cell per rune and two for
// East Asian wide runes. A newline continues at x on the next row; other
// control characters are skipped. It returns the cell after the last rune.
func (b *RenderBatch) DrawString(x, y uint32, s string, fg, bg bindings.Colour) (uint32, uint32) {
	cx, cy := x, y
	for _, r := range s {
		if r == '\n' {
			cx, cy = x, cy+1
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.SetColouredChar(cx, cy, r, fg, bg)
		cx += cellWidth(r)
	}
	return cx, cy
}

func cellWidth(r rune) uint32 {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// Len returns the number of queued operations.
func (b *RenderBatch) Len() int { return len(b.ops) }

// Reset drops every queued operation.
func (b *RenderBatch) Reset() { b.ops = nil }

// Take returns the queued operations and empties the batch.
func (b *RenderBatch) Take() []bindings.RenderRequest {
	ops := b.ops
	b.ops = nil
	return ops
}
