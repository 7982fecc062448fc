package coord

import "testing"

func TestDisplayWidthAscii(t *testing.T) {
	if w := DisplayWidth("a"); w != 1 {
		t.Fatalf("want 1, got %d", w)
	}
}

func TestDisplayWidthWide(t *testing.T) {
	if w := DisplayWidth("你"); w != 2 {
		t.Fatalf("want 2, got %d", w)
	}
}

func TestStringWidthSum(t *testing.T) {
	a, b := "你好", "世界"
	if StringWidth(a+b) != StringWidth(a)+StringWidth(b) {
		t.Fatalf("width not additive across grapheme-aligned strings")
	}
}

func TestCharColumnRoundTrip(t *testing.T) {
	line := "你好世界"
	for ci := 0; ci <= 4; ci++ {
		dc := CharToColumn(line, ci)
		got := ColumnToChar(line, dc)
		want := StartOfGrapheme(line, ci)
		if got != want {
			t.Fatalf("ci=%d dc=%d: ColumnToChar(CharToColumn)=%d want %d", ci, dc, got, want)
		}
	}
}

func TestNextPrevGrapheme(t *testing.T) {
	line := "ab"
	next, ok := NextGrapheme(line, 0)
	if !ok || next != 1 {
		t.Fatalf("next from 0: got %d,%v", next, ok)
	}
	_, ok = NextGrapheme(line, 2)
	if ok {
		t.Fatalf("next at end of line should be false")
	}
	prev, ok := PrevGrapheme(line, 1)
	if !ok || prev != 0 {
		t.Fatalf("prev from 1: got %d,%v", prev, ok)
	}
	_, ok = PrevGrapheme(line, 0)
	if ok {
		t.Fatalf("prev at start of line should be false")
	}
}

func TestByteCharRoundTrip(t *testing.T) {
	s := "a你b"
	for ci := 0; ci <= 3; ci++ {
		bo := CharToByte(s, ci)
		if ByteToChar(s, bo) != ci {
			t.Fatalf("byte<->char round trip failed at ci=%d", ci)
		}
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	// U+1F600 is outside the BMP: one codepoint, two UTF-16 units.
	s := "a\U0001F600b"
	for ci := 0; ci <= 3; ci++ {
		u := CharToUTF16(s, ci)
		if UTF16ToChar(s, u) != ci {
			t.Fatalf("utf16 round trip failed at ci=%d (u=%d)", ci, u)
		}
	}
	if UTF16Length(s) != 4 {
		t.Fatalf("want utf16 length 4, got %d", UTF16Length(s))
	}
}
