package history

import (
	"testing"

	"github.com/codersauce/red/internal/buffer"
)

func TestBeginCommitRoundTrip(t *testing.T) {
	h := New()
	h.Begin(buffer.Position{Line: 0, Col: 0})
	h.Append(Op{Kind: OpInsert, Line: 0, Col: 0, Text: "hi"})
	h.Commit(buffer.Position{Line: 0, Col: 2})

	if !h.CanUndo() {
		t.Fatalf("expected an undoable group")
	}
	g, ok := h.PopUndo()
	if !ok {
		t.Fatal("PopUndo failed")
	}
	if g.CursorBefore != (buffer.Position{Line: 0, Col: 0}) {
		t.Fatalf("wrong cursor before: %+v", g.CursorBefore)
	}
	if g.CursorAfter != (buffer.Position{Line: 0, Col: 2}) {
		t.Fatalf("wrong cursor after: %+v", g.CursorAfter)
	}
	if !h.CanRedo() {
		t.Fatalf("expected redo available after undo")
	}
}

func TestEmptyGroupDiscarded(t *testing.T) {
	h := New()
	h.Begin(buffer.Position{})
	h.Commit(buffer.Position{})
	if h.CanUndo() {
		t.Fatalf("empty group should not be pushed")
	}
}

func TestRedoClearedOnNewEdit(t *testing.T) {
	h := New()
	h.Begin(buffer.Position{})
	h.Append(Op{Kind: OpInsert, Text: "x"})
	h.Commit(buffer.Position{Col: 1})
	h.PopUndo()
	if !h.CanRedo() {
		t.Fatal("expected redo available")
	}
	h.Begin(buffer.Position{})
	h.Append(Op{Kind: OpInsert, Text: "y"})
	h.Commit(buffer.Position{Col: 1})
	if h.CanRedo() {
		t.Fatal("redo should be cleared by a new direct edit")
	}
}

func TestInvertedOps(t *testing.T) {
	h := New()
	h.Begin(buffer.Position{})
	h.Append(Op{Kind: OpInsert, Line: 0, Col: 0, Text: "a"})
	h.Append(Op{Kind: OpInsert, Line: 0, Col: 1, Text: "b"})
	h.Commit(buffer.Position{Col: 2})
	g, _ := h.PopUndo()
	inv := g.InvertedOps()
	if len(inv) != 2 || inv[0].Kind != OpDelete || inv[0].Text != "b" {
		t.Fatalf("unexpected inverted ops: %+v", inv)
	}
}
