package render

import (
	"fmt"

	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/mode"
	"github.com/codersauce/red/internal/render/style"
	"github.com/codersauce/red/internal/window"
)

// BufferSource looks up a buffer by ID for composition. Both production
// (wrapping dispatcher.Context.Buffers) and tests use MapBufferSource.
type BufferSource interface {
	Lookup(id buffer.ID) *buffer.Buffer
}

// MapBufferSource adapts a map[buffer.ID]*buffer.Buffer to BufferSource.
type MapBufferSource map[buffer.ID]*buffer.Buffer

func (m MapBufferSource) Lookup(id buffer.ID) *buffer.Buffer { return m[id] }

var (
	statusActive   = style.Default().WithAttrs(style.AttrReverse)
	statusInactive = style.Default().WithAttrs(style.AttrDim)
	selectionStyle = style.Default().WithAttrs(style.AttrReverse)
)

// Compose draws every window in wt, each window's own status line,
// diagnostics squiggles from diags, (when the active window is in
// Command or Search mode) a full-width command-line row replacing the
// active window's status line, and finally any plugin/picker overlay chrome from the
// supplied ChromeSource on top of everything else, into a fresh Grid
// sized width×height. It is a pure function: no I/O, no mutation of wt
// or bufs, so it is cheap to call on every keystroke and let Diff
// decide what actually needs to reach the terminal. diags and chrome
// may both be nil.
func Compose(wt *window.Tree, bufs BufferSource, diags DiagnosticsSource, chrome ChromeSource, width, height int) *Grid {
	g := NewGrid(width, height)
	active := wt.Active()
	for _, win := range wt.Windows() {
		isActive := win.ID() == active.ID()
		drawWindow(g, win, isActive, bufs)
		if diags != nil {
			if buf := bufs.Lookup(win.BufferID); buf != nil {
				if p := buf.Path(); p != nil {
					drawDiagnostics(g, win, win.Rect(), diags.For(*p))
				}
			}
		}
	}
	if active.Mode == mode.Command || active.Mode == mode.Search {
		drawCommandLine(g, active)
	}
	if chrome != nil {
		for _, o := range chrome.Overlays() {
			drawOverlay(g, o)
		}
	}
	return g
}

// CursorScreenPosition returns where the terminal cursor should be
// drawn for the active window: inside its text area normally, or on
// the command line while composing an ex command / search pattern.
func CursorScreenPosition(wt *window.Tree) (row, col int) {
	active := wt.Active()
	if active.Mode == mode.Command || active.Mode == mode.Search {
		return active.Rect().Y + active.Rect().H - 1, len(active.CommandLine) + 1
	}
	r := active.Rect()
	return r.Y + (active.Cursor.Line - active.Top), r.X + (active.Cursor.Col - active.Left)
}

func drawWindow(g *Grid, win *window.Window, isActive bool, bufs BufferSource) {
	r := win.Rect()
	buf := bufs.Lookup(win.BufferID)
	textRows := r.H - 1
	if textRows < 0 {
		textRows = 0
	}
	for row := 0; row < textRows; row++ {
		lineNo := win.Top + row
		if buf == nil || lineNo >= buf.LineCount() {
			continue
		}
		text := buf.Line(lineNo)
		st := style.Default()
		g.WriteString(r.Y+row, r.X, clipLeft(text, win.Left), st)
		if isActive && win.Selection != nil {
			highlightSelection(g, win, lineNo, r)
		}
	}
	drawStatusLine(g, win, r, isActive, buf)
}

func highlightSelection(g *Grid, win *window.Window, lineNo int, r window.Rect) {
	a, b := win.Selection.Anchor, win.Cursor
	if a.Line > b.Line || (a.Line == b.Line && a.Col > b.Col) {
		a, b = b, a
	}
	if lineNo < a.Line || lineNo > b.Line {
		return
	}
	startCol, endCol := 0, r.W
	if !win.Selection.Linewise {
		if lineNo == a.Line {
			startCol = a.Col - win.Left
		}
		if lineNo == b.Line {
			endCol = b.Col - win.Left + 1
		}
	}
	row := r.Y + (lineNo - win.Top)
	for col := startCol; col < endCol && col < r.W; col++ {
		if col < 0 {
			continue
		}
		cell := g.At(row, r.X+col)
		cell.Style = cell.Style.Merge(selectionStyle)
		g.Set(row, r.X+col, cell)
	}
}

func drawStatusLine(g *Grid, win *window.Window, r window.Rect, isActive bool, buf *buffer.Buffer) {
	st := statusInactive
	if isActive {
		st = statusActive
	}
	g.FillRow(r.Y+r.H-1, Cell{Grapheme: " ", Style: st})
	if buf == nil {
		return
	}
	name := buf.Name()
	dirty := ""
	if buf.Dirty() {
		dirty = " [+]"
	}
	label := fmt.Sprintf(" %s%s — %s ", name, dirty, win.Mode.String())
	g.WriteString(r.Y+r.H-1, r.X, clipLeft(label, 0), st)
}

func drawCommandLine(g *Grid, win *window.Window) {
	row := win.Rect().Y + win.Rect().H - 1
	st := style.Default()
	prefix := ":"
	if win.Mode == mode.Search {
		prefix = "/"
	}
	g.FillRow(row, Cell{Grapheme: " ", Style: st})
	g.WriteString(row, 0, prefix+win.CommandLine, st)
}

// clipLeft drops the first `left` display columns of s, used to honor a
// window's horizontal scroll offset. It operates on runes, which is an
// approximation for wide graphemes landing mid-cluster; acceptable
// since horizontal scroll only matters for very long lines.
func clipLeft(s string, left int) string {
	if left <= 0 {
		return s
	}
	runes := []rune(s)
	if left >= len(runes) {
		return ""
	}
	return string(runes[left:])
}
