package dispatcher

import (
	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/mode"
	"github.com/codersauce/red/internal/window"
)

// ModeHandler executes mode transitions and Visual-selection starts,
// grounded on teacher input/mode's Switch/Push/Pop transition model
// (here flattened to a single active Mode per window, since this
// editor has no mode-stack non-goal beyond Visual/Normal/Insert).
type ModeHandler struct{}

func NewModeHandler() *ModeHandler { return &ModeHandler{} }

func (*ModeHandler) Namespace() string { return "mode" }

func (*ModeHandler) CanHandle(name string) bool {
	return name == "mode.change" || name == "mode.visual"
}

func (h *ModeHandler) Handle(a action.Action, ctx *Context) Result {
	win := ctx.Windows.Active()
	switch act := a.(type) {
	case action.ChangeMode:
		from := win.Mode
		to, ok := parseModeName(act.To)
		if !ok {
			return Errorf("unknown mode %q", act.To)
		}
		if from == mode.Insert && to != mode.Insert {
			if buf := ctx.Buffers[win.BufferID]; buf != nil {
				ctx.HistoryFor(buf.ID()).Commit(win.Cursor)
			}
		}
		if !to.IsVisual() {
			win.Selection = nil
		}
		win.Mode = to
		if to == mode.Insert {
			if buf := ctx.Buffers[win.BufferID]; buf != nil {
				ctx.HistoryFor(buf.ID()).Begin(win.Cursor)
			}
		}
		return Success().WithModeChange(to.String())
	case action.EnterVisual:
		win.Mode = mode.Visual
		if act.Linewise {
			win.Mode = mode.VisualLine
		} else if act.Blockwise {
			win.Mode = mode.VisualBlock
		}
		win.Selection = &window.Selection{
			Anchor:    win.Cursor,
			Linewise:  act.Linewise,
			Blockwise: act.Blockwise,
		}
		return Success().WithModeChange(win.Mode.String())
	default:
		return Errorf("mode handler received unexpected action %T", a)
	}
}

func parseModeName(s string) (mode.Mode, bool) {
	switch s {
	case "Normal":
		return mode.Normal, true
	case "Insert":
		return mode.Insert, true
	case "Visual":
		return mode.Visual, true
	case "VisualLine":
		return mode.VisualLine, true
	case "VisualBlock":
		return mode.VisualBlock, true
	case "Command":
		return mode.Command, true
	case "Search":
		return mode.Search, true
	default:
		return mode.Normal, false
	}
}
