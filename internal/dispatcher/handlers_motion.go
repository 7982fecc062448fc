package dispatcher

import (
	"strings"
	"unicode"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/coord"
)

// MotionHandler executes cursor motions against the active window,
// grounded on teacher dispatcher/handlers/cursor's motion dispatch
// (single-key h/j/k/l plus word/paragraph motions) generalized onto
// this editor's codepoint-addressed buffer.Position.
type MotionHandler struct{}

func NewMotionHandler() *MotionHandler { return &MotionHandler{} }

func (*MotionHandler) Namespace() string { return "motion" }

func (*MotionHandler) CanHandle(name string) bool { return name == "motion" }

func (*MotionHandler) Handle(a action.Action, ctx *Context) Result {
	m, ok := a.(action.Motion)
	if !ok {
		return Errorf("motion handler received non-Motion action %T", a)
	}
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	count := m.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		win.Cursor = step(buf, win.Cursor, m.Kind)
	}
	return Success()
}

func step(buf *buffer.Buffer, pos buffer.Position, kind action.MotionKind) buffer.Position {
	switch kind {
	case action.MoveLeft:
		if prev, ok := coord.PrevGrapheme(buf.Line(pos.Line), pos.Col); ok {
			pos.Col = prev
		}
	case action.MoveRight:
		if next, ok := coord.NextGrapheme(buf.Line(pos.Line), pos.Col); ok {
			pos.Col = next
		}
	case action.MoveUp:
		if pos.Line > 0 {
			pos.Line--
			pos = buf.Clamp(pos)
		}
	case action.MoveDown:
		if pos.Line < buf.LineCount()-1 {
			pos.Line++
			pos = buf.Clamp(pos)
		}
	case action.MoveLineStart:
		pos.Col = 0
	case action.MoveLineEnd:
		pos.Col = buf.CharCount(pos.Line)
	case action.MoveFirstNonBlank:
		line := []rune(buf.Line(pos.Line))
		col := 0
		for col < len(line) && unicode.IsSpace(line[col]) {
			col++
		}
		pos.Col = col
	case action.MoveWordForward:
		pos = wordForward(buf, pos)
	case action.MoveWordBackward:
		pos = wordBackward(buf, pos)
	case action.MoveWordEndForward:
		pos = wordEndForward(buf, pos)
	case action.MoveBufferStart:
		pos = buffer.Position{Line: 0, Col: 0}
	case action.MoveBufferEnd:
		pos = buffer.Position{Line: buf.LineCount() - 1, Col: 0}
	case action.MoveParagraphForward:
		pos = paragraph(buf, pos, 1)
	case action.MoveParagraphBackward:
		pos = paragraph(buf, pos, -1)
	}
	return pos
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func lineRunes(buf *buffer.Buffer, line int) []rune {
	if line < 0 || line >= buf.LineCount() {
		return nil
	}
	return []rune(strings.TrimSuffix(buf.Line(line), "\n"))
}

// wordForward moves to the start of the next word, crossing line
// boundaries when the current line is exhausted.
func wordForward(buf *buffer.Buffer, pos buffer.Position) buffer.Position {
	line := lineRunes(buf, pos.Line)
	col := pos.Col
	if col < len(line) && isWordRune(line[col]) {
		for col < len(line) && isWordRune(line[col]) {
			col++
		}
	} else if col < len(line) {
		for col < len(line) && !isWordRune(line[col]) && !unicode.IsSpace(line[col]) {
			col++
		}
	}
	for col < len(line) && unicode.IsSpace(line[col]) {
		col++
	}
	if col < len(line) {
		return buffer.Position{Line: pos.Line, Col: col}
	}
	if pos.Line+1 < buf.LineCount() {
		return buffer.Position{Line: pos.Line + 1, Col: 0}
	}
	return buffer.Position{Line: pos.Line, Col: len(line)}
}

func wordBackward(buf *buffer.Buffer, pos buffer.Position) buffer.Position {
	line := lineRunes(buf, pos.Line)
	col := pos.Col
	if col == 0 {
		if pos.Line == 0 {
			return pos
		}
		prevLine := lineRunes(buf, pos.Line-1)
		return buffer.Position{Line: pos.Line - 1, Col: len(prevLine)}
	}
	col--
	for col > 0 && unicode.IsSpace(line[col]) {
		col--
	}
	if col > 0 && isWordRune(line[col]) {
		for col > 0 && isWordRune(line[col-1]) {
			col--
		}
	} else if col > 0 {
		for col > 0 && !isWordRune(line[col-1]) && !unicode.IsSpace(line[col-1]) {
			col--
		}
	}
	return buffer.Position{Line: pos.Line, Col: col}
}

func wordEndForward(buf *buffer.Buffer, pos buffer.Position) buffer.Position {
	line := lineRunes(buf, pos.Line)
	col := pos.Col + 1
	for col < len(line) && unicode.IsSpace(line[col]) {
		col++
	}
	if col < len(line) && isWordRune(line[col]) {
		for col+1 < len(line) && isWordRune(line[col+1]) {
			col++
		}
	}
	if col >= len(line) {
		col = max0(len(line) - 1)
	}
	return buffer.Position{Line: pos.Line, Col: col}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// paragraph moves dir (+1/-1) to the next blank-line boundary.
func paragraph(buf *buffer.Buffer, pos buffer.Position, dir int) buffer.Position {
	line := pos.Line + dir
	for line >= 0 && line < buf.LineCount() {
		if strings.TrimSpace(buf.Line(line)) == "" {
			return buffer.Position{Line: line, Col: 0}
		}
		line += dir
	}
	if dir > 0 {
		return buffer.Position{Line: buf.LineCount() - 1, Col: 0}
	}
	return buffer.Position{Line: 0, Col: 0}
}
