package dispatcher

import (
	"strconv"
	"strings"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
)

// FileIO abstracts reading/writing a buffer's backing file, grounded on
// teacher dispatcher/handlers/file's FileManager interface — kept as an
// interface (rather than the concrete-type shortcut the rest of this
// package takes) because file I/O is the one dependency the caller
// legitimately wants to fake in tests.
type FileIO interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
}

// ExCommandHandler parses and executes `:` command lines, grounded on
// teacher dispatcher/handlers/file (ActionSave/ActionOpen) collapsed
// from an action-per-command table to a parsed-line dispatch, since
// spec.md's ex commands are free-form text, not discrete bound keys.
type ExCommandHandler struct {
	io FileIO
}

func NewExCommandHandler(io FileIO) *ExCommandHandler {
	return &ExCommandHandler{io: io}
}

func (*ExCommandHandler) Namespace() string { return "excommand" }

func (*ExCommandHandler) CanHandle(name string) bool { return name == "editor.excommand" }

func (h *ExCommandHandler) Handle(a action.Action, ctx *Context) Result {
	act, ok := a.(action.ExCommand)
	if !ok {
		return Errorf("excommand handler received non-ExCommand action %T", a)
	}
	fields := strings.Fields(act.Line)
	if len(fields) == 0 {
		return NoOp()
	}
	cmd := fields[0]
	args := fields[1:]

	switch {
	case cmd == "w" || cmd == "write":
		return h.write(ctx, args)
	case cmd == "q" || cmd == "quit":
		ctx.SetData("quit", true)
		return Success()
	case cmd == "q!":
		ctx.SetData("quit", true)
		ctx.SetData("forceQuit", true)
		return Success()
	case cmd == "wq" || cmd == "x":
		if res := h.write(ctx, args); res.IsError() {
			return res
		}
		ctx.SetData("quit", true)
		return Success()
	case cmd == "e" || cmd == "edit":
		return h.edit(ctx, args)
	case strings.HasPrefix(cmd, "sp"):
		return dispatchHere(ctx, action.Split{Orientation: action.SplitHorizontal})
	case strings.HasPrefix(cmd, "vs"):
		return dispatchHere(ctx, action.Split{Orientation: action.SplitVertical})
	case isLineNumber(cmd):
		n, _ := strconv.Atoi(cmd)
		win := ctx.Windows.Active()
		win.Cursor = ctx.ActiveBuffer().Clamp(buffer.Position{Line: n - 1, Col: 0})
		return Success()
	default:
		return Errorf("unknown command: %s", cmd)
	}
}

func isLineNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (h *ExCommandHandler) write(ctx *Context, args []string) Result {
	buf := ctx.ActiveBuffer()
	if buf == nil {
		return NoOp()
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if buf.Path() != nil {
		path = *buf.Path()
	}
	if path == "" {
		return Errorf("no file name")
	}
	if h.io == nil {
		return Errorf("no file I/O backend configured")
	}
	if err := h.io.WriteFile(path, buf.Text()); err != nil {
		return Error(err)
	}
	buf.SetPath(path)
	buf.MarkClean()
	return SuccessWithMessage("written: " + path)
}

func (h *ExCommandHandler) edit(ctx *Context, args []string) Result {
	if len(args) == 0 || h.io == nil {
		return NoOp()
	}
	content, err := h.io.ReadFile(args[0])
	if err != nil {
		return Error(err)
	}
	nb := buffer.NewFromString(content, buffer.WithPath(args[0]))
	ctx.Buffers[nb.ID()] = nb
	ctx.Windows.Active().BufferID = nb.ID()
	ctx.Windows.Active().Cursor = buffer.Position{}
	return Success()
}

// dispatchHere runs a window-family action inline, used by ex commands
// that alias a keymap-bound action (":sp" == Ctrl-w s).
func dispatchHere(ctx *Context, a action.Action) Result {
	return (&WindowHandler{}).Handle(a, ctx)
}
