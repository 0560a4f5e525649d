package client

import (
	"testing"

	"ccanvas/bindings"
)

func TestRenderBatchKeepsOrder(t *testing.T) {
	var b RenderBatch
	b.SetChar(0, 0, 'a')
	b.SetChar(1, 0, 'b')
	b.HideCursor()
	b.SetCursorStyle(bindings.CursorBlinkingBar)
	b.ShowCursor()

	ops := b.Take()
	want := []bindings.RenderRequest{
		bindings.SetChar{X: 0, Y: 0, C: 'a'},
		bindings.SetChar{X: 1, Y: 0, C: 'b'},
		bindings.HideCursor{},
		bindings.SetCursorStyle{Style: bindings.CursorBlinkingBar},
		bindings.ShowCursor{},
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("op %d = %#v, want %#v", i, ops[i], want[i])
		}
	}
	if b.Len() != 0 {
		t.Fatalf("Take should empty the batch, Len = %d", b.Len())
	}
}

func TestRenderBatchReset(t *testing.T) {
	var b RenderBatch
	b.FlushTerminal()
	b.Reset()
	if ops := b.Take(); len(ops) != 0 {
		t.Fatalf("expected empty batch after Reset, got %v", ops)
	}
}

func TestDrawStringAdvancesByCellWidth(t *testing.T) {
	var b RenderBatch
	x, y := b.DrawString(2, 1, "a語\tb\nc", bindings.White, bindings.Reset)
	if x != 3 || y != 2 {
		t.Fatalf("end cell = (%d,%d), want (3,2)", x, y)
	}

	ops := b.Take()
	type cell struct {
		x, y uint32
		c    bindings.Char
	}
	want := []cell{{2, 1, 'a'}, {3, 1, '語'}, {5, 1, 'b'}, {2, 2, 'c'}}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d: %#v", len(ops), len(want), ops)
	}
	for i, w := range want {
		op, ok := ops[i].(bindings.SetColouredChar)
		if !ok {
			t.Fatalf("op %d is %T", i, ops[i])
		}
		if op.X != w.x || op.Y != w.y || op.C != w.c {
			t.Fatalf("op %d = (%d,%d,%q), want (%d,%d,%q)", i, op.X, op.Y, op.C, w.x, w.y, w.c)
		}
		if op.Fg != bindings.White || op.Bg != bindings.Reset {
			t.Fatalf("op %d lost its colours: %#v", i, op)
		}
	}
}
