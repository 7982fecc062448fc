// Package coord converts between the three coordinate systems the editor
// must keep coherent: byte offsets (rope and LSP wire boundaries),
// codepoint indices (buffer APIs, cursor, plugin APIs), and display
// columns (rendering and alignment).
//
// Grapheme-cluster boundaries, East-Asian width, and emoji presentation
// are delegated to github.com/rivo/uniseg rather than reimplemented;
// that table is what the teacher's own go.mod already carries uniseg for.
package coord

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// DisplayWidth returns the terminal column width of a single grapheme
// cluster: 0, 1, or 2 depending on East-Asian width and emoji
// presentation. Passing a string containing more than one grapheme
// cluster returns the width of only its first cluster; use StringWidth
// for multi-grapheme input.
func DisplayWidth(grapheme string) int {
	if grapheme == "" {
		return 0
	}
	_, _, width, _ := uniseg.FirstGraphemeClusterInString(grapheme, -1)
	return width
}

// StringWidth returns the sum of display widths of every grapheme
// cluster in s.
func StringWidth(s string) int {
	width := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		_, _, w := gr.Positions()
		width += w
	}
	return width
}

// clusterBoundaries returns, for line, the codepoint index at the start
// of each grapheme cluster plus one trailing index equal to the total
// codepoint count (a sentinel "end" boundary).
func clusterBoundaries(line string) []int {
	bounds := make([]int, 0, len(line)+1)
	ci := 0
	state := -1
	rest := line
	for len(rest) > 0 {
		bounds = append(bounds, ci)
		cluster, remainder, _, newState := uniseg.FirstGraphemeClusterInString(rest, state)
		state = newState
		ci += utf8.RuneCountInString(cluster)
		rest = remainder
	}
	bounds = append(bounds, ci)
	return bounds
}

// CharToColumn converts a codepoint index within line to a display
// column, by summing the widths of every grapheme cluster before ci.
func CharToColumn(line string, ci int) int {
	if ci <= 0 {
		return 0
	}
	col := 0
	pos := 0
	state := -1
	rest := line
	for len(rest) > 0 && pos < ci {
		cluster, remainder, w, newState := uniseg.FirstGraphemeClusterInString(rest, state)
		clusterLen := utf8.RuneCountInString(cluster)
		if pos+clusterLen > ci {
			// ci falls inside this cluster: round down to its start.
			break
		}
		col += w
		pos += clusterLen
		state = newState
		rest = remainder
	}
	return col
}

// ColumnToChar converts a display column within line to the codepoint
// index at the start of the grapheme cluster covering dc. Columns past
// the end of the line return the line's codepoint length.
func ColumnToChar(line string, dc int) int {
	if dc <= 0 {
		return 0
	}
	col := 0
	pos := 0
	state := -1
	rest := line
	for len(rest) > 0 {
		cluster, remainder, w, newState := uniseg.FirstGraphemeClusterInString(rest, state)
		if col+w > dc {
			return pos
		}
		col += w
		pos += utf8.RuneCountInString(cluster)
		state = newState
		rest = remainder
	}
	return pos
}

// NextGrapheme returns the codepoint index at the start of the grapheme
// cluster after ci, or ok=false if ci is already at or past the end of
// line.
func NextGrapheme(line string, ci int) (int, bool) {
	bounds := clusterBoundaries(line)
	for i, b := range bounds {
		if b == ci && i+1 < len(bounds) {
			return bounds[i+1], true
		}
		if b > ci && i < len(bounds) {
			return b, true
		}
	}
	return 0, false
}

// PrevGrapheme returns the codepoint index at the start of the grapheme
// cluster before ci, or ok=false if ci is already at the start of line.
func PrevGrapheme(line string, ci int) (int, bool) {
	bounds := clusterBoundaries(line)
	prev := -1
	for _, b := range bounds {
		if b >= ci {
			break
		}
		prev = b
	}
	if prev < 0 {
		return 0, false
	}
	return prev, true
}

// StartOfGrapheme rounds ci down to the codepoint index at the start of
// the grapheme cluster covering it.
func StartOfGrapheme(line string, ci int) int {
	bounds := clusterBoundaries(line)
	start := 0
	for _, b := range bounds {
		if b > ci {
			break
		}
		start = b
	}
	return start
}

// ByteToChar converts a byte offset within s to a codepoint index.
func ByteToChar(s string, bo int) int {
	if bo <= 0 {
		return 0
	}
	if bo >= len(s) {
		return utf8.RuneCountInString(s)
	}
	return utf8.RuneCountInString(s[:bo])
}

// CharToByte converts a codepoint index within s to a byte offset.
func CharToByte(s string, ci int) int {
	if ci <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == ci {
			return i
		}
		n++
	}
	return len(s)
}

// UTF16Length returns the number of UTF-16 code units s would occupy,
// for LSP servers that have not negotiated PositionEncodingKind=utf-32.
func UTF16Length(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// CharToUTF16 converts a codepoint index within s to a UTF-16 code unit
// offset.
func CharToUTF16(s string, ci int) int {
	n := 0
	u := 0
	for _, r := range s {
		if n == ci {
			return u
		}
		if r >= 0x10000 {
			u += 2
		} else {
			u++
		}
		n++
	}
	return u
}

// UTF16ToChar converts a UTF-16 code unit offset within s to a codepoint
// index, rounding down if u falls inside a surrogate pair.
func UTF16ToChar(s string, u int) int {
	units := 0
	n := 0
	for _, r := range s {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if units+w > u {
			return n
		}
		units += w
		n++
	}
	return n
}
