package rope

import (
	"strings"
	"testing"
)

func TestFromStringRoundTrip(t *testing.T) {
	s := strings.Repeat("hello world\n", 200)
	r := FromString(s)
	if r.String() != s {
		t.Fatalf("round trip mismatch")
	}
	if r.Len() != len(s) {
		t.Fatalf("len mismatch: got %d want %d", r.Len(), len(s))
	}
}

func TestInsertDelete(t *testing.T) {
	r := FromString("hello world")
	r = r.Insert(5, ",")
	if r.String() != "hello, world" {
		t.Fatalf("insert failed: %q", r.String())
	}
	r = r.Delete(5, 6)
	if r.String() != "hello world" {
		t.Fatalf("delete failed: %q", r.String())
	}
}

func TestInsertAtBoundaries(t *testing.T) {
	r := FromString("bc")
	r = r.Insert(0, "a")
	if r.String() != "abc" {
		t.Fatalf("prepend failed: %q", r.String())
	}
	r = r.Insert(r.Len(), "d")
	if r.String() != "abcd" {
		t.Fatalf("append failed: %q", r.String())
	}
}

func TestEmptyRope(t *testing.T) {
	r := New()
	if r.LineCount() != 1 {
		t.Fatalf("empty rope must have 1 line, got %d", r.LineCount())
	}
	if !r.IsEmpty() {
		t.Fatalf("expected empty")
	}
}

func TestLineCountAndText(t *testing.T) {
	r := FromString("ab\ncd\nef")
	if r.LineCount() != 3 {
		t.Fatalf("want 3 lines, got %d", r.LineCount())
	}
	if r.LineText(0) != "ab" || r.LineText(1) != "cd" || r.LineText(2) != "ef" {
		t.Fatalf("line text mismatch: %q %q %q", r.LineText(0), r.LineText(1), r.LineText(2))
	}
}

func TestOffsetPointRoundTrip(t *testing.T) {
	r := FromString("abc\ndef\nghi")
	for off := 0; off <= r.Len(); off++ {
		p := r.OffsetToPoint(off)
		if r.PointToOffset(p) != off {
			t.Fatalf("offset<->point round trip failed at %d: %+v", off, p)
		}
	}
}

func TestDeleteAcrossLines(t *testing.T) {
	r := FromString("ab\ncd")
	// Delete the newline, joining the two lines.
	r = r.Delete(2, 3)
	if r.String() != "abcd" {
		t.Fatalf("join failed: %q", r.String())
	}
	if r.LineCount() != 1 {
		t.Fatalf("want 1 line after join, got %d", r.LineCount())
	}
}

func TestLargeInsertSpansMultipleLeaves(t *testing.T) {
	big := strings.Repeat("x", maxLeaf*3)
	r := FromString(big)
	r = r.Insert(maxLeaf+5, "INSERTED")
	want := big[:maxLeaf+5] + "INSERTED" + big[maxLeaf+5:]
	if r.String() != want {
		t.Fatalf("multi-leaf insert mismatch")
	}
}
