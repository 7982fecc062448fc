package buffer

import "testing"

func TestInsertWithinLine(t *testing.T) {
	b := NewFromString("Hello")
	ev, err := b.Insert(0, 5, ", world")
	if err != nil {
		t.Fatal(err)
	}
	if b.Line(0) != "Hello, world" {
		t.Fatalf("got %q", b.Line(0))
	}
	if ev.StartLine != 0 || ev.OldEndLine != 1 || ev.NewEndLine != 1 {
		t.Fatalf("unexpected change event: %+v", ev)
	}
	if b.Version() != 1 {
		t.Fatalf("want version 1, got %d", b.Version())
	}
}

func TestInsertPastEndOfLineAppends(t *testing.T) {
	b := NewFromString("ab")
	if _, err := b.Insert(0, 100, "cd"); err != nil {
		t.Fatal(err)
	}
	if b.Line(0) != "abcd" {
		t.Fatalf("got %q", b.Line(0))
	}
}

func TestInsertPastEndOfBufferExtends(t *testing.T) {
	b := New()
	if _, err := b.Insert(2, 0, "hi"); err != nil {
		t.Fatal(err)
	}
	if b.LineCount() != 3 {
		t.Fatalf("want 3 lines, got %d", b.LineCount())
	}
	if b.Line(2) != "hi" {
		t.Fatalf("got %q", b.Line(2))
	}
}

func TestInsertMultilineSplitsLines(t *testing.T) {
	b := NewFromString("abcdef")
	ev, err := b.Insert(0, 3, "\nXYZ\n")
	if err != nil {
		t.Fatal(err)
	}
	if b.LineCount() != 3 {
		t.Fatalf("want 3 lines, got %d: %q", b.LineCount(), b.Text())
	}
	if ev.NewEndLine-ev.StartLine != 3 {
		t.Fatalf("change event should report 3 new lines: %+v", ev)
	}
}

func TestDeleteJoinsLines(t *testing.T) {
	b := NewFromString("ab\ncd")
	// delete the 'b' and the newline: 2 codepoints from (0,1)
	if _, err := b.Delete(0, 1, 2); err != nil {
		t.Fatal(err)
	}
	if b.Text() != "acd" {
		t.Fatalf("got %q", b.Text())
	}
}

func TestDeleteTrailingNewlineAllowed(t *testing.T) {
	b := NewFromString("ab\n")
	if _, err := b.Delete(0, 2, 100); err != nil {
		t.Fatal(err)
	}
	if b.Text() != "ab" {
		t.Fatalf("got %q", b.Text())
	}
}

func TestVersionMonotonic(t *testing.T) {
	b := New()
	var last uint64
	for i := 0; i < 5; i++ {
		if _, err := b.Insert(0, 0, "x"); err != nil {
			t.Fatal(err)
		}
		if b.Version() <= last {
			t.Fatalf("version did not strictly increase: %d <= %d", b.Version(), last)
		}
		last = b.Version()
	}
}

func TestClamp(t *testing.T) {
	b := NewFromString("ab\ncd")
	p := b.Clamp(Position{Line: 50, Col: 50})
	if p.Line != 1 || p.Col != 2 {
		t.Fatalf("clamp failed: %+v", p)
	}
}

func TestXYToChar(t *testing.T) {
	b := NewFromString("ab\ncd")
	if b.XYToChar(0, 1) != 3 {
		t.Fatalf("want 3, got %d", b.XYToChar(0, 1))
	}
}

func TestReplace(t *testing.T) {
	b := NewFromString("hello world")
	if _, err := b.Replace(0, 6, 5, "there"); err != nil {
		t.Fatal(err)
	}
	if b.Text() != "hello there" {
		t.Fatalf("got %q", b.Text())
	}
}

func TestSlice(t *testing.T) {
	b := NewFromString("a\nb\nc\nd")
	if got := b.Slice(1, 3); got != "b\nc" {
		t.Fatalf("got %q", got)
	}
}
