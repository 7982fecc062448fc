package dispatcher

import (
	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/window"
)

// WindowHandler executes split/close/focus/resize actions against the
// active window.Tree, grounded directly on teacher
// dispatcher/handlers/window (Handler.HandleAction's action-name
// switch over a WindowManager interface), collapsed here onto the
// concrete window.Tree since this editor has exactly one
// implementation to dispatch against.
type WindowHandler struct{}

func NewWindowHandler() *WindowHandler { return &WindowHandler{} }

func (*WindowHandler) Namespace() string { return "window" }

func (*WindowHandler) CanHandle(name string) bool {
	switch name {
	case "window.split", "window.close", "window.focus", "window.resize":
		return true
	}
	return false
}

func (h *WindowHandler) Handle(a action.Action, ctx *Context) Result {
	switch act := a.(type) {
	case action.Split:
		orientation := window.Horizontal
		if act.Orientation == action.SplitVertical {
			orientation = window.Vertical
		}
		buf := ctx.Windows.Active().BufferID
		ctx.Windows.Split(orientation, buf)
		return Success()
	case action.CloseWindow:
		if err := ctx.Windows.CloseActive(); err != nil {
			return Error(err)
		}
		return Success()
	case action.FocusWindow:
		if err := ctx.Windows.Focus(toWindowDirection(act.Direction)); err != nil {
			return NoOpWithMessage(err.Error())
		}
		return Success()
	case action.ResizeWindow:
		if err := ctx.Windows.Resize(toWindowDirection(act.Direction), act.Delta); err != nil {
			return NoOpWithMessage(err.Error())
		}
		return Success()
	default:
		return Errorf("window handler received unexpected action %T", a)
	}
}

func toWindowDirection(d action.FocusDirection) window.Direction {
	switch d {
	case action.FocusLeft:
		return window.Left
	case action.FocusRight:
		return window.Right
	case action.FocusUp:
		return window.Up
	case action.FocusDown:
		return window.Down
	case action.FocusPrev:
		return window.Prev
	default:
		return window.Next
	}
}
