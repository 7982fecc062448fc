// Package buffer provides the codepoint-addressed editing surface over
// package rope. Rope offsets are bytes; every method here accepts and
// returns line/codepoint-column positions, converting through package
// coord at the boundary, per the editor's coordinate-system split.
package buffer

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/codersauce/red/internal/coord"
	"github.com/codersauce/red/internal/ederr"
	"github.com/codersauce/red/internal/rope"
)

// ID identifies a buffer within the editor's buffer registry.
type ID uint64

var nextID atomic.Uint64

// NewID returns a fresh, process-unique buffer id.
func NewID() ID {
	return ID(nextID.Add(1))
}

// Position is a codepoint-addressed location: Line is a 0-based line
// index, Col is a 0-based codepoint offset within that line.
type Position struct {
	Line int
	Col  int
}

// ChangeEvent describes the minimum line range a mutation affected, for
// LSP didChange notifications and view invalidation. OldEndLine and
// NewEndLine are exclusive.
type ChangeEvent struct {
	StartLine  int
	OldEndLine int
	NewEndLine int
}

// Buffer is a line/codepoint-addressed editable text, backed by an
// immutable rope. All methods are safe for concurrent use; writers take
// an exclusive lock, readers a shared one, and Snapshot hands out an
// immutable rope value any goroutine may read without locking further.
type Buffer struct {
	mu       sync.RWMutex
	rope     rope.Rope
	id       ID
	name     string
	path     *string
	language string
	dirty    bool
	version  uint64
}

// Option configures a new Buffer.
type Option func(*Buffer)

// WithName sets the buffer's display name.
func WithName(name string) Option { return func(b *Buffer) { b.name = name } }

// WithPath sets the buffer's backing file path.
func WithPath(path string) Option { return func(b *Buffer) { b.path = &path } }

// WithLanguage sets the buffer's language tag (drives LSP server
// selection).
func WithLanguage(lang string) Option { return func(b *Buffer) { b.language = lang } }

// New creates an empty buffer (one empty line).
func New(opts ...Option) *Buffer {
	b := &Buffer{rope: rope.New(), id: NewID()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromString creates a buffer with initial content.
func NewFromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.rope = rope.FromString(s)
	return b
}

// ID returns the buffer's stable identifier.
func (b *Buffer) ID() ID { return b.id }

// Name returns the buffer's display name.
func (b *Buffer) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Path returns the buffer's file path, or nil for a scratch buffer.
func (b *Buffer) Path() *string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// SetPath updates the buffer's backing file path.
func (b *Buffer) SetPath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = &path
}

// Language returns the buffer's language tag.
func (b *Buffer) Language() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.language
}

// SetLanguage updates the buffer's language tag, e.g. once the caller
// has sniffed it from a file extension that wasn't known at construction.
func (b *Buffer) SetLanguage(language string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.language = language
}

// Dirty reports whether the buffer has unsaved changes.
func (b *Buffer) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirty
}

// MarkClean clears the dirty flag, e.g. after a successful save.
func (b *Buffer) MarkClean() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = false
}

// Version returns the current monotonic revision counter.
func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LineCount returns the number of lines; always ≥ 1.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineCount()
}

// Line returns the text of line i, without its terminator.
func (b *Buffer) Line(i int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineText(i)
}

// CharCount returns the codepoint length of line i.
func (b *Buffer) CharCount(i int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len([]rune(b.rope.LineText(i)))
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.String()
}

// Slice returns the text of lines [startLine, endLine), joined by "\n".
func (b *Buffer) Slice(startLine, endLine int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if endLine <= startLine {
		return ""
	}
	start := b.rope.LineStartOffset(startLine)
	var end int
	if endLine >= b.rope.LineCount() {
		end = b.rope.Len()
	} else {
		end = b.rope.LineStartOffset(endLine)
		if end > 0 {
			end-- // drop the newline that precedes endLine's start
		}
	}
	return b.rope.Slice(start, end)
}

// byteOffsetLocked converts a codepoint Position to a byte offset.
// Caller holds at least a read lock.
func (b *Buffer) byteOffsetLocked(p Position) int {
	lineStart := b.rope.LineStartOffset(p.Line)
	line := b.rope.LineText(p.Line)
	col := p.Col
	if col < 0 {
		col = 0
	}
	runeLen := len([]rune(line))
	if col > runeLen {
		col = runeLen
	}
	return lineStart + coord.CharToByte(line, col)
}

// XYToChar returns the global codepoint index of Position{Line: y, Col:
// x}.
func (b *Buffer) XYToChar(x, y int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for l := 0; l < y; l++ {
		total += len([]rune(b.rope.LineText(l))) + 1 // +1 for the newline
	}
	return total + x
}

// clampLocked clamps Position to a valid location in the current rope.
// Caller holds at least a read lock.
func (b *Buffer) clampLocked(p Position) Position {
	lineCount := b.rope.LineCount()
	if p.Line < 0 {
		p.Line = 0
	}
	if p.Line >= lineCount {
		p.Line = lineCount - 1
	}
	maxCol := len([]rune(b.rope.LineText(p.Line)))
	if p.Col < 0 {
		p.Col = 0
	}
	if p.Col > maxCol {
		p.Col = maxCol
	}
	return p
}

// Clamp clamps Position to a valid location in the buffer. Writes past
// end of line or end of buffer (see Insert) are never clamped on their
// way in; Clamp is for callers (cursors) re-validating after an edit
// changed the buffer shape out from under them.
func (b *Buffer) Clamp(p Position) Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clampLocked(p)
}

// Insert inserts s at (line, col), extending the buffer with empty lines
// if line is past the end, and appending within the line if col is past
// its end. Returns the change event describing the affected line range.
func (b *Buffer) Insert(line, col int, s string) (ChangeEvent, error) {
	if s == "" {
		return ChangeEvent{StartLine: line, OldEndLine: line + 1, NewEndLine: line + 1}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	lineCount := b.rope.LineCount()
	if line < 0 {
		return ChangeEvent{}, fmt.Errorf("insert at line %d: %w", line, ederr.ErrOutOfRange)
	}
	oldEndLine := line + 1
	if line >= lineCount {
		oldEndLine = lineCount
		// Extend with empty lines up to and including `line`.
		pad := strings.Repeat("\n", line-lineCount+1)
		b.rope = b.rope.Insert(b.rope.Len(), pad)
	}

	lineText := b.rope.LineText(line)
	runeLen := len([]rune(lineText))
	if col < 0 {
		col = 0
	}
	if col > runeLen {
		col = runeLen // append at end of line
	}
	offset := b.rope.LineStartOffset(line) + coord.CharToByte(lineText, col)
	b.rope = b.rope.Insert(offset, s)
	b.version++
	b.dirty = true

	insertedLines := strings.Count(s, "\n")
	return ChangeEvent{
		StartLine:  line,
		OldEndLine: oldEndLine,
		NewEndLine: line + insertedLines + 1,
	}, nil
}

// Delete removes length codepoints starting at (line, col), joining
// lines as needed. Deleting past end of buffer clamps to the buffer's
// end; deleting a trailing newline is always allowed.
func (b *Buffer) Delete(line, col, length int) (ChangeEvent, error) {
	if length <= 0 {
		return ChangeEvent{StartLine: line, OldEndLine: line + 1, NewEndLine: line + 1}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if line < 0 || line >= b.rope.LineCount() {
		return ChangeEvent{}, fmt.Errorf("delete at line %d: %w", line, ederr.ErrOutOfRange)
	}
	lineText := b.rope.LineText(line)
	if col < 0 {
		col = 0
	}
	runeLen := len([]rune(lineText))
	if col > runeLen {
		col = runeLen
	}
	start := b.rope.LineStartOffset(line) + coord.CharToByte(lineText, col)

	end := start
	remaining := length
	cur := line
	curCol := col
	for remaining > 0 && end < b.rope.Len() {
		curLine := b.rope.LineText(cur)
		curLen := len([]rune(curLine))
		if curCol < curLen {
			// Delete within the current line's remaining runes.
			take := curLen - curCol
			if take > remaining {
				take = remaining
			}
			byteStart := b.rope.LineStartOffset(cur) + coord.CharToByte(curLine, curCol)
			byteEnd := b.rope.LineStartOffset(cur) + coord.CharToByte(curLine, curCol+take)
			end = byteEnd
			remaining -= take
			_ = byteStart
			if remaining == 0 {
				break
			}
			curCol += take
		}
		if remaining > 0 {
			// Consume the newline joining this line to the next, if any.
			if cur+1 < b.rope.LineCount() {
				end++ // the '\n' byte
				remaining--
				cur++
				curCol = 0
			} else {
				break // trailing newline/end of buffer: clamp here
			}
		}
	}
	if end > b.rope.Len() {
		end = b.rope.Len()
	}

	b.rope = b.rope.Delete(start, end)
	b.version++
	b.dirty = true

	return ChangeEvent{StartLine: line, OldEndLine: cur + 1, NewEndLine: line + 1}, nil
}

// Replace deletes length codepoints at (line, col) and inserts s in
// their place. Within one line this is a single buffer mutation (one
// version bump); when length runs past the line's end it is performed
// as a Delete followed by an Insert (two version bumps), and the
// returned change event is the Insert's.
func (b *Buffer) Replace(line, col, length int, s string) (ChangeEvent, error) {
	b.mu.Lock()
	start := b.byteOffsetLocked(Position{Line: line, Col: col})
	lineText := b.rope.LineText(line)
	runeLen := len([]rune(lineText))
	endCol := col + length
	if endCol > runeLen {
		endCol = runeLen
	}
	end := b.rope.LineStartOffset(line) + coord.CharToByte(lineText, endCol)
	if length > runeLen-col && line+1 < b.rope.LineCount() {
		// Replacement spans past this line's end; fall back to Delete's
		// line-joining walk by releasing the lock and delegating.
		b.mu.Unlock()
		if _, err := b.Delete(line, col, length); err != nil {
			return ChangeEvent{}, err
		}
		return b.Insert(line, col, s)
	}
	b.rope = b.rope.Delete(start, end)
	b.rope = b.rope.Insert(start, s)
	b.version++
	b.dirty = true
	b.mu.Unlock()
	return ChangeEvent{StartLine: line, OldEndLine: line + 1, NewEndLine: line + strings.Count(s, "\n") + 1}, nil
}

// Snapshot is an immutable, concurrency-safe view of buffer content at
// one revision, handed to other goroutines (LSP, plugin host) instead of
// the live Buffer.
type Snapshot struct {
	Rope     rope.Rope
	Version  uint64
	Path     *string
	Language string
}

// Snapshot captures the buffer's current state.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{Rope: b.rope, Version: b.version, Path: b.path, Language: b.language}
}
