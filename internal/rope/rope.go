// Package rope implements an immutable, byte-offset-addressed rope for
// editor buffer storage. Every mutating method returns a new Rope value;
// the receiver is never modified, which makes snapshots (for LSP
// synchronization and plugin buffer reads) free to take and safe to share
// across goroutines.
//
// The tree shape is adapted from a conventional rope: leaves hold a run
// of bytes up to maxLeaf, internal nodes hold two children plus cached
// aggregate metrics (byte length, newline count) so that
// line lookups never need to rescan the whole tree.
package rope

import "strings"

// maxLeaf bounds how much text a single leaf node holds when FromString
// splits its input; Concat does not split leaves. Kept small enough that
// tests exercise multi-node trees.
const maxLeaf = 1024

// ByteOffset addresses a position within a Rope's encoded bytes.
type ByteOffset = int

// Rope is an immutable sequence of bytes, always valid UTF-8 by
// construction: every public constructor and mutator takes a Go string
// (itself guaranteed valid UTF-8 by the language) and only ever
// concatenates or slices at rune boundaries that the caller supplies in
// codepoint-derived byte offsets (see package buffer).
type Rope struct {
	root *node
}

type node struct {
	// Leaf fields.
	text string
	// Internal fields.
	left, right *node
	// Metrics, valid for both leaves and internal nodes.
	byteLen   int
	lineCount int // number of '\n' bytes contained, i.e. lines-1 within this subtree
}

func newLeaf(s string) *node {
	return &node{text: s, byteLen: len(s), lineCount: strings.Count(s, "\n")}
}

func newInternal(l, r *node) *node {
	return &node{
		left:      l,
		right:     r,
		byteLen:   l.byteLen + r.byteLen,
		lineCount: l.lineCount + r.lineCount,
	}
}

func (n *node) isLeaf() bool { return n.left == nil && n.right == nil }

// New returns an empty rope.
func New() Rope { return Rope{root: newLeaf("")} }

// FromString builds a rope from s, splitting it into leaves of at most
// maxLeaf bytes and combining them into a balanced tree.
func FromString(s string) Rope {
	if s == "" {
		return New()
	}
	var leaves []*node
	for len(s) > 0 {
		cut := maxLeaf
		if cut >= len(s) {
			cut = len(s)
		} else {
			// Never split a leaf in the middle of a UTF-8 sequence.
			for cut > 0 && isUTF8Continuation(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = len(s)
			}
		}
		leaves = append(leaves, newLeaf(s[:cut]))
		s = s[cut:]
	}
	return Rope{root: buildBalanced(leaves)}
}

func isUTF8Continuation(b byte) bool { return b&0xC0 == 0x80 }

func buildBalanced(nodes []*node) *node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	var next []*node
	for i := 0; i < len(nodes); i += 2 {
		if i+1 < len(nodes) {
			next = append(next, newInternal(nodes[i], nodes[i+1]))
		} else {
			next = append(next, nodes[i])
		}
	}
	return buildBalanced(next)
}

// Len returns the total byte length.
func (r Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.byteLen
}

// IsEmpty reports whether the rope holds no bytes.
func (r Rope) IsEmpty() bool { return r.Len() == 0 }

// LineCount returns the number of lines (newline count + 1); always ≥ 1.
func (r Rope) LineCount() int {
	if r.root == nil {
		return 1
	}
	return r.root.lineCount + 1
}

// String returns the full rope content. Use sparingly on large buffers.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(r.root.byteLen)
	appendTo(r.root, &sb)
	return sb.String()
}

func appendTo(n *node, sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		sb.WriteString(n.text)
		return
	}
	appendTo(n.left, sb)
	appendTo(n.right, sb)
}

// Slice returns the bytes in [start, end). Out-of-range bounds are
// clamped rather than erroring; callers that need strict range checks
// validate against Len() first (see package buffer).
func (r Rope) Slice(start, end ByteOffset) string {
	if r.root == nil {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > r.root.byteLen {
		end = r.root.byteLen
	}
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sliceInto(r.root, start, end, 0, &sb)
	return sb.String()
}

func sliceInto(n *node, start, end, base int, sb *strings.Builder) {
	nodeStart, nodeEnd := base, base+n.byteLen
	if nodeEnd <= start || nodeStart >= end {
		return
	}
	if n.isLeaf() {
		lo := start - nodeStart
		if lo < 0 {
			lo = 0
		}
		hi := end - nodeStart
		if hi > n.byteLen {
			hi = n.byteLen
		}
		sb.WriteString(n.text[lo:hi])
		return
	}
	sliceInto(n.left, start, end, base, sb)
	sliceInto(n.right, start, end, base+n.left.byteLen, sb)
}

// ByteAt returns the byte at offset, and false if offset is out of range.
func (r Rope) ByteAt(offset ByteOffset) (byte, bool) {
	if r.root == nil || offset < 0 || offset >= r.root.byteLen {
		return 0, false
	}
	n := r.root
	for !n.isLeaf() {
		if offset < n.left.byteLen {
			n = n.left
		} else {
			offset -= n.left.byteLen
			n = n.right
		}
	}
	return n.text[offset], true
}

// Concat returns a new rope with other's bytes appended.
func (r Rope) Concat(other Rope) Rope {
	if r.Len() == 0 {
		return other
	}
	if other.Len() == 0 {
		return r
	}
	return Rope{root: newInternal(r.root, other.root)}
}

// Split returns the ropes before and at-or-after offset.
func (r Rope) Split(offset ByteOffset) (Rope, Rope) {
	if offset <= 0 {
		return New(), r
	}
	if offset >= r.Len() {
		return r, New()
	}
	left, right := splitNode(r.root, offset)
	return Rope{root: left}, Rope{root: right}
}

func splitNode(n *node, offset int) (*node, *node) {
	if n.isLeaf() {
		return newLeaf(n.text[:offset]), newLeaf(n.text[offset:])
	}
	if offset <= n.left.byteLen {
		l, r := splitNode(n.left, offset)
		return l, newInternal(r, n.right)
	}
	l, r := splitNode(n.right, offset-n.left.byteLen)
	return newInternal(n.left, l), r
}

// Insert inserts text at offset, returning a new rope.
func (r Rope) Insert(offset ByteOffset, text string) Rope {
	if text == "" {
		return r
	}
	if r.Len() == 0 {
		return FromString(text)
	}
	if offset <= 0 {
		return FromString(text).Concat(r)
	}
	if offset >= r.Len() {
		return r.Concat(FromString(text))
	}
	left, right := r.Split(offset)
	return left.Concat(FromString(text)).Concat(right)
}

// Delete removes the bytes in [start, end), returning a new rope.
func (r Rope) Delete(start, end ByteOffset) Rope {
	if start >= end || r.Len() == 0 {
		return r
	}
	if start < 0 {
		start = 0
	}
	if end > r.Len() {
		end = r.Len()
	}
	left, _ := r.Split(start)
	_, right := r.Split(end)
	return left.Concat(right)
}

// Replace deletes [start, end) and inserts text at start.
func (r Rope) Replace(start, end ByteOffset, text string) Rope {
	return r.Delete(start, end).Insert(start, text)
}

// Point is a 0-based line/byte-column position.
type Point struct {
	Line   int
	Column int // byte offset within the line
}

// LineStartOffset returns the byte offset at which line begins. line is
// clamped to [0, LineCount()-1].
func (r Rope) LineStartOffset(line int) int {
	if line <= 0 || r.root == nil {
		return 0
	}
	return lineStart(r.root, line)
}

// lineStart returns the byte offset, relative to n's own start, of the
// beginning of line (counting newlines from n's own line 0).
func lineStart(n *node, line int) int {
	if n.isLeaf() {
		off := 0
		for line > 0 {
			idx := strings.IndexByte(n.text[off:], '\n')
			if idx < 0 {
				return n.byteLen
			}
			off += idx + 1
			line--
		}
		return off
	}
	if line <= n.left.lineCount {
		return lineStart(n.left, line)
	}
	return n.left.byteLen + lineStart(n.right, line-n.left.lineCount)
}

// LineEndOffset returns the byte offset just before line's terminating
// newline (or the rope's end, for the last line).
func (r Rope) LineEndOffset(line int) int {
	start := r.LineStartOffset(line)
	if r.root == nil {
		return start
	}
	rest := r.Slice(start, r.Len())
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		return start + idx
	}
	return r.Len()
}

// LineText returns line's content without its terminating newline.
func (r Rope) LineText(line int) string {
	return r.Slice(r.LineStartOffset(line), r.LineEndOffset(line))
}

// OffsetToPoint converts a byte offset to a line/byte-column Point.
func (r Rope) OffsetToPoint(offset int) Point {
	if r.root == nil || offset <= 0 {
		return Point{}
	}
	if offset > r.root.byteLen {
		offset = r.root.byteLen
	}
	text := r.Slice(0, offset)
	line := strings.Count(text, "\n")
	col := offset
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		col = offset - idx - 1
	}
	return Point{Line: line, Column: col}
}

// PointToOffset converts a line/byte-column Point to a byte offset.
func (r Rope) PointToOffset(p Point) int {
	return r.LineStartOffset(p.Line) + p.Column
}
