package dispatcher

import (
	"strings"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/clipboard"
	"github.com/codersauce/red/internal/history"
)

// EditorHandler executes the text-mutating action family (insert,
// delete, undo, redo, yank, paste, quit), grounded on teacher
// dispatcher/handlers editing handlers' pattern of validating then
// delegating to the engine, generalized to record every mutation into
// the active buffer's undo Group via ctx.HistoryFor.
type EditorHandler struct{}

func NewEditorHandler() *EditorHandler { return &EditorHandler{} }

func (*EditorHandler) Namespace() string { return "editor" }

func (*EditorHandler) CanHandle(name string) bool {
	switch name {
	case "editor.insert", "editor.delete", "editor.undo", "editor.redo",
		"editor.yank", "editor.paste", "editor.quit":
		return true
	}
	return false
}

func (h *EditorHandler) Handle(a action.Action, ctx *Context) Result {
	switch act := a.(type) {
	case action.InsertText:
		return h.insert(act, ctx)
	case action.DeleteChars:
		return h.deleteChars(act, ctx)
	case action.Undo:
		return h.undo(ctx)
	case action.Redo:
		return h.redo(ctx)
	case action.Yank:
		return h.yank(act, ctx)
	case action.Paste:
		return h.paste(act, ctx)
	case action.Quit:
		ctx.SetData("quit", true)
		ctx.SetData("forceQuit", act.Force)
		return Success()
	default:
		return Errorf("editor handler received unexpected action %T", a)
	}
}

func (h *EditorHandler) insert(act action.InsertText, ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	hist := ctx.HistoryFor(buf.ID())
	before := win.Cursor

	if act.Text == "\n" {
		if _, err := buf.Insert(win.Cursor.Line, win.Cursor.Col, "\n"); err != nil {
			return Error(err)
		}
		hist.Append(history.Op{Kind: history.OpInsert, Line: before.Line, Col: before.Col, Text: "\n"})
		win.Cursor = buffer.Position{Line: win.Cursor.Line + 1, Col: 0}
		return Success()
	}

	if _, err := buf.Insert(win.Cursor.Line, win.Cursor.Col, act.Text); err != nil {
		return Error(err)
	}
	hist.Append(history.Op{Kind: history.OpInsert, Line: before.Line, Col: before.Col, Text: act.Text})
	win.Cursor.Col += len([]rune(act.Text))
	return Success()
}

func (h *EditorHandler) deleteChars(act action.DeleteChars, ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	count := act.Count
	if count <= 0 {
		count = 1
	}
	hist := ctx.HistoryFor(buf.ID())
	pos := win.Cursor

	if act.Direction == action.DeleteBackward {
		start := pos.Col - count
		if start < 0 {
			start = 0
		}
		n := pos.Col - start
		if n <= 0 {
			return NoOp()
		}
		deleted := []rune(buf.Line(pos.Line))[start:pos.Col]
		if _, err := buf.Delete(pos.Line, start, n); err != nil {
			return Error(err)
		}
		hist.Append(history.Op{Kind: history.OpDelete, Line: pos.Line, Col: start, Text: string(deleted)})
		win.Cursor.Col = start
		return Success()
	}

	line := []rune(buf.Line(pos.Line))
	avail := len(line) - pos.Col
	n := count
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return NoOp()
	}
	deleted := line[pos.Col : pos.Col+n]
	if _, err := buf.Delete(pos.Line, pos.Col, n); err != nil {
		return Error(err)
	}
	hist.Append(history.Op{Kind: history.OpDelete, Line: pos.Line, Col: pos.Col, Text: string(deleted)})
	return Success()
}

func (h *EditorHandler) undo(ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	hist := ctx.HistoryFor(buf.ID())
	g, ok := hist.PopUndo()
	if !ok {
		return NoOpWithMessage("already at oldest change")
	}
	for _, op := range g.InvertedOps() {
		applyOp(buf, op)
	}
	win.Cursor = g.CursorBefore
	return Success()
}

func (h *EditorHandler) redo(ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	hist := ctx.HistoryFor(buf.ID())
	g, ok := hist.PopRedo()
	if !ok {
		return NoOpWithMessage("already at newest change")
	}
	for _, op := range g.Ops {
		applyOp(buf, op)
	}
	win.Cursor = g.CursorAfter
	return Success()
}

// applyOp replays a single primitive history op against buf, ignoring
// out-of-range errors: Ops recorded against the buffer's own prior
// states can never be out of range when replayed in order.
func applyOp(buf *buffer.Buffer, op history.Op) {
	switch op.Kind {
	case history.OpInsert:
		_, _ = buf.Insert(op.Line, op.Col, op.Text)
	case history.OpDelete:
		_, _ = buf.Delete(op.Line, op.Col, len([]rune(op.Text)))
	}
}

func (h *EditorHandler) yank(act action.Yank, ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	if win.Selection != nil {
		text := selectionText(buf, win.Selection.Anchor, win.Cursor)
		kind := clipboard.Charwise
		if win.Selection.Linewise {
			kind = clipboard.Linewise
		} else if win.Selection.Blockwise {
			kind = clipboard.Blockwise
		}
		ctx.Clipboard.Set(clipboard.Unnamed, clipboard.Entry{Text: text, Kind: kind})
		win.Selection = nil
		return Success()
	}
	count := act.Count
	if count <= 0 {
		count = 1
	}
	end := win.Cursor.Line + count
	if end > buf.LineCount() {
		end = buf.LineCount()
	}
	text := buf.Slice(win.Cursor.Line, end)
	ctx.Clipboard.Set(clipboard.Unnamed, clipboard.Entry{Text: text, Kind: clipboard.Linewise})
	return Success()
}

func selectionText(buf *buffer.Buffer, a, b buffer.Position) string {
	if b.Line < a.Line || (b.Line == a.Line && b.Col < a.Col) {
		a, b = b, a
	}
	if a.Line == b.Line {
		line := []rune(buf.Line(a.Line))
		lo, hi := a.Col, b.Col
		if hi > len(line) {
			hi = len(line)
		}
		if lo > hi {
			return ""
		}
		return string(line[lo:hi])
	}
	var sb strings.Builder
	firstLine := []rune(buf.Line(a.Line))
	if a.Col <= len(firstLine) {
		sb.WriteString(string(firstLine[a.Col:]))
	}
	sb.WriteByte('\n')
	sb.WriteString(buf.Slice(a.Line+1, b.Line))
	if b.Line > a.Line {
		sb.WriteByte('\n')
	}
	lastLine := []rune(buf.Line(b.Line))
	hi := b.Col
	if hi > len(lastLine) {
		hi = len(lastLine)
	}
	sb.WriteString(string(lastLine[:hi]))
	return sb.String()
}

func (h *EditorHandler) paste(act action.Paste, ctx *Context) Result {
	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if buf == nil {
		return NoOp()
	}
	entry, ok := ctx.Clipboard.Get(clipboard.Unnamed)
	if !ok || entry.Text == "" {
		return NoOp()
	}
	hist := ctx.HistoryFor(buf.ID())
	pos := win.Cursor

	if entry.Kind == clipboard.Linewise {
		line := pos.Line
		if !act.Before {
			line++
		}
		text := entry.Text
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if _, err := buf.Insert(line, 0, text); err != nil {
			return Error(err)
		}
		hist.Append(history.Op{Kind: history.OpInsert, Line: line, Col: 0, Text: text})
		win.Cursor = buffer.Position{Line: line, Col: 0}
		return Success()
	}

	col := pos.Col
	if !act.Before {
		col++
	}
	if _, err := buf.Insert(pos.Line, col, entry.Text); err != nil {
		return Error(err)
	}
	hist.Append(history.Op{Kind: history.OpInsert, Line: pos.Line, Col: col, Text: entry.Text})
	win.Cursor.Col = col + len([]rune(entry.Text))
	return Success()
}
