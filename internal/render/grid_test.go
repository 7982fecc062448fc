package render

import (
	"testing"

	"github.com/codersauce/red/internal/render/style"
)

func TestWriteStringWideGrapheme(t *testing.T) {
	g := NewGrid(5, 1)
	g.WriteString(0, 0, "a你b", style.Default())
	if g.At(0, 0).Grapheme != "a" {
		t.Fatalf("col0: %q", g.At(0, 0).Grapheme)
	}
	if g.At(0, 1).Grapheme != "你" {
		t.Fatalf("col1: %q", g.At(0, 1).Grapheme)
	}
	if !g.At(0, 2).Continuation {
		t.Fatalf("col2 should be a continuation cell")
	}
	if g.At(0, 3).Grapheme != "b" {
		t.Fatalf("col3: %q", g.At(0, 3).Grapheme)
	}
}

func TestWriteStringTruncatesWideAtEdge(t *testing.T) {
	g := NewGrid(2, 1)
	g.WriteString(0, 0, "a你", style.Default())
	if g.At(0, 0).Grapheme != "a" {
		t.Fatalf("col0: %q", g.At(0, 0).Grapheme)
	}
	if g.At(0, 1).Grapheme != " " {
		t.Fatalf("wide grapheme overflowing the grid should be padded with a space, got %q", g.At(0, 1).Grapheme)
	}
}

func TestDiffOnlyDifferingCells(t *testing.T) {
	a := NewGrid(3, 1)
	a.WriteString(0, 0, "abc", style.Default())
	b := NewGrid(3, 1)
	b.WriteString(0, 0, "abX", style.Default())

	ops := Diff(a, b)
	total := 0
	for _, op := range ops {
		total += len(op.Cells)
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 differing cell, got %d across ops %+v", total, ops)
	}
}

func TestDiffCoalescesRuns(t *testing.T) {
	a := NewGrid(5, 1)
	b := NewGrid(5, 1)
	b.WriteString(0, 1, "XYZ", style.Default())
	ops := Diff(a, b)
	if len(ops) != 1 {
		t.Fatalf("expected one coalesced run, got %d: %+v", len(ops), ops)
	}
	if ops[0].Col != 1 || len(ops[0].Cells) != 3 {
		t.Fatalf("unexpected run: %+v", ops[0])
	}
}

func TestDiffIdenticalGridsProduceNoOps(t *testing.T) {
	a := NewGrid(4, 2)
	b := NewGrid(4, 2)
	ops := Diff(a, b)
	if len(ops) != 0 {
		t.Fatalf("expected no ops for identical grids, got %d", len(ops))
	}
}
