package dispatcher

import (
	"fmt"

	"github.com/codersauce/red/internal/action"
)

// Dispatcher routes an action.Action to the Handler whose CanHandle
// matches its Name, mirroring teacher internal/dispatcher's handler
// registry. Execute wraps every dispatch in the active buffer's undo
// group (opened at the start of a non-Insert-mode edit, closed at the
// end) so a chord like "d w" still produces exactly one undo step, per
// SPEC_FULL.md §4.3/§4.6.
type Dispatcher struct {
	handlers []Handler
}

// New returns a Dispatcher with the default handler set wired in.
// fileIO may be nil in tests that never exercise `:w`/`:e`.
func New(fileIO FileIO) *Dispatcher {
	return &Dispatcher{
		handlers: []Handler{
			NewMotionHandler(),
			NewEditorHandler(),
			NewModeHandler(),
			NewWindowHandler(),
			NewExCommandHandler(fileIO),
			NewAsyncHandler(),
		},
	}
}

// Register appends a custom handler, e.g. for a plugin-contributed
// action family.
func (d *Dispatcher) Register(h Handler) {
	d.handlers = append(d.handlers, h)
}

func (d *Dispatcher) find(name string) Handler {
	for _, h := range d.handlers {
		if h.CanHandle(name) {
			return h
		}
	}
	return nil
}

// Execute dispatches a to its handler. Insert-mode text mutations batch
// into whatever undo group Insert mode already opened on entry (see
// ModeHandler); a motion in Insert mode closes that group and opens a
// fresh one at the new cursor. Every other mutating action opens and
// closes its own one-action group around the call.
func (d *Dispatcher) Execute(a action.Action, ctx *Context) Result {
	h := d.find(a.Name())
	if h == nil {
		return Error(fmt.Errorf("no handler registered for action %q", a.Name()))
	}

	win := ctx.Windows.Active()
	buf := ctx.Buffers[win.BufferID]
	if _, isMotion := a.(action.Motion); isMotion && buf != nil && win.Mode.String() == "Insert" && ctx.HistoryFor(buf.ID()).Extend() {
		hist := ctx.HistoryFor(buf.ID())
		hist.Commit(win.Cursor)
		res := h.Handle(a, ctx)
		hist.Begin(win.Cursor)
		return res
	}
	batching := buf != nil && ctx.HistoryFor(buf.ID()).Extend() && isInsertModeEdit(win.Mode, a)

	if buf != nil && !batching && requiresOwnGroup(a) {
		ctx.HistoryFor(buf.ID()).Begin(win.Cursor)
		res := h.Handle(a, ctx)
		ctx.HistoryFor(buf.ID()).Commit(win.Cursor)
		return res
	}
	return h.Handle(a, ctx)
}

func isInsertModeEdit(m interface{ String() string }, a action.Action) bool {
	_, isInsert := a.(action.InsertText)
	_, isDelete := a.(action.DeleteChars)
	return m.String() == "Insert" && (isInsert || isDelete)
}

// requiresOwnGroup reports whether a is a direct buffer mutation that
// should be wrapped in its own undo group when not already batching
// inside an open Insert-mode group (paste and single Normal-mode
// deletes/replacements each produce one undo step).
func requiresOwnGroup(a action.Action) bool {
	switch a.(type) {
	case action.InsertText, action.DeleteChars, action.Paste:
		return true
	default:
		return false
	}
}
