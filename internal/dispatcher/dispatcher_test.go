package dispatcher

import (
	"fmt"
	"testing"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/clipboard"
	"github.com/codersauce/red/internal/window"
)

type fakeFileIO struct {
	files map[string]string
}

func newFakeFileIO() *fakeFileIO { return &fakeFileIO{files: make(map[string]string)} }

func (f *fakeFileIO) ReadFile(path string) (string, error) {
	c, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return c, nil
}

func (f *fakeFileIO) WriteFile(path, content string) error {
	f.files[path] = content
	return nil
}

func newTestSetup(content string) (*Dispatcher, *Context) {
	buf := buffer.NewFromString(content)
	bufs := map[buffer.ID]*buffer.Buffer{buf.ID(): buf}
	wt := window.New(buf.ID(), 80, 24)
	ctx := NewContext(wt, bufs, clipboard.New())
	return New(newFakeFileIO()), ctx
}

func TestMotionMovesCursor(t *testing.T) {
	d, ctx := newTestSetup("hello\nworld\n")
	res := d.Execute(action.Motion{Kind: action.MoveRight}, ctx)
	if !res.IsOK() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ctx.Windows.Active().Cursor.Col != 1 {
		t.Fatalf("expected cursor col 1, got %+v", ctx.Windows.Active().Cursor)
	}
}

func TestInsertThenUndoRestoresText(t *testing.T) {
	d, ctx := newTestSetup("ab\n")
	d.Execute(action.ChangeMode{To: "Insert"}, ctx)
	d.Execute(action.InsertText{Text: "X"}, ctx)
	if ctx.ActiveBuffer().Line(0) != "Xab" {
		t.Fatalf("unexpected line after insert: %q", ctx.ActiveBuffer().Line(0))
	}
	d.Execute(action.ChangeMode{To: "Normal"}, ctx)
	res := d.Execute(action.Undo{}, ctx)
	if !res.IsOK() {
		t.Fatalf("unexpected undo result: %+v", res)
	}
	if ctx.ActiveBuffer().Line(0) != "ab" {
		t.Fatalf("expected undo to restore original line, got %q", ctx.ActiveBuffer().Line(0))
	}
}

func TestUndoThenRedo(t *testing.T) {
	d, ctx := newTestSetup("ab\n")
	d.Execute(action.ChangeMode{To: "Insert"}, ctx)
	d.Execute(action.InsertText{Text: "X"}, ctx)
	d.Execute(action.ChangeMode{To: "Normal"}, ctx)
	d.Execute(action.Undo{}, ctx)
	d.Execute(action.Redo{}, ctx)
	if ctx.ActiveBuffer().Line(0) != "Xab" {
		t.Fatalf("expected redo to reapply insert, got %q", ctx.ActiveBuffer().Line(0))
	}
}

func TestUndoWithNothingToUndoIsNoOp(t *testing.T) {
	d, ctx := newTestSetup("ab\n")
	res := d.Execute(action.Undo{}, ctx)
	if res.Status != StatusNoOp {
		t.Fatalf("expected StatusNoOp, got %+v", res)
	}
}

func TestSplitAndCloseWindow(t *testing.T) {
	d, ctx := newTestSetup("ab\n")
	d.Execute(action.Split{Orientation: action.SplitVertical}, ctx)
	if len(ctx.Windows.Windows()) != 2 {
		t.Fatalf("expected 2 windows after split")
	}
	res := d.Execute(action.CloseWindow{}, ctx)
	if !res.IsOK() {
		t.Fatalf("unexpected close result: %+v", res)
	}
	if len(ctx.Windows.Windows()) != 1 {
		t.Fatalf("expected 1 window after close")
	}
}

func TestExCommandWriteRoundTrip(t *testing.T) {
	d, ctx := newTestSetup("saved content\n")
	res := d.Execute(action.ExCommand{Line: "w /tmp/out.txt"}, ctx)
	if !res.IsOK() {
		t.Fatalf("unexpected write result: %+v", res)
	}
	if ctx.ActiveBuffer().Dirty() {
		t.Fatalf("expected buffer to be clean after write")
	}
}

func TestExCommandQuitSetsContextData(t *testing.T) {
	d, ctx := newTestSetup("x\n")
	d.Execute(action.ExCommand{Line: "q"}, ctx)
	v, ok := ctx.GetData("quit")
	if !ok || v != true {
		t.Fatalf("expected quit flag set, got %v %v", v, ok)
	}
}

func TestYankAndPaste(t *testing.T) {
	d, ctx := newTestSetup("line one\nline two\n")
	d.Execute(action.Yank{Count: 1}, ctx)
	d.Execute(action.Paste{}, ctx)
	if ctx.ActiveBuffer().LineCount() < 3 {
		t.Fatalf("expected paste to add a line, got %d lines", ctx.ActiveBuffer().LineCount())
	}
}

func TestLSPRequestReturnsAsync(t *testing.T) {
	d, ctx := newTestSetup("x\n")
	res := d.Execute(action.LSPRequest{Kind: action.LSPHover}, ctx)
	if res.Status != StatusAsync {
		t.Fatalf("expected lsp.request to be async, got %+v", res)
	}
}
