package editor

import (
	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/plugin"
)

// PluginNotifier adapts a *plugin.Manager to editor.Notifier, turning
// a dispatched action into the editor/buffer event broadcasts the
// api's on()/once() surface subscribes to. Constructed in cmd/red and
// handed to Editor.SetNotifiers alongside the LSP bridge.
type PluginNotifier struct {
	Manager *plugin.Manager
}

// NewPluginNotifier returns a Notifier broadcasting through mgr.
func NewPluginNotifier(mgr *plugin.Manager) *PluginNotifier {
	return &PluginNotifier{Manager: mgr}
}

// NotifyEdit satisfies Notifier but does no work: NotifyPlugin already
// carries the specific action that caused the edit, which is more
// useful to a subscriber than a bare buffer ID.
func (n *PluginNotifier) NotifyEdit(bufID buffer.ID) {}

// NotifyPlugin translates a just-executed action into one or more
// Manager.Emit broadcasts, named the way SPEC_FULL.md's event table
// lists them.
func (n *PluginNotifier) NotifyPlugin(a action.Action) {
	if n.Manager == nil {
		return
	}
	switch act := a.(type) {
	case action.Motion:
		n.Manager.Emit("cursor:moved", map[string]interface{}{"kind": int(act.Kind), "count": act.Count})
	case action.InsertText:
		n.Manager.Emit("buffer:changed", map[string]interface{}{"text": act.Text})
	case action.DeleteChars:
		n.Manager.Emit("buffer:changed", map[string]interface{}{"count": act.Count})
	case action.Paste:
		n.Manager.Emit("buffer:changed", nil)
	case action.Yank:
		n.Manager.Emit("buffer:yanked", map[string]interface{}{"count": act.Count})
	case action.ChangeMode:
		n.Manager.Emit("mode:changed", map[string]interface{}{"mode": act.To})
	case action.ExCommand:
		n.notifyExCommand(act)
	case action.PluginCommand:
		n.Manager.Emit("plugin:command", map[string]interface{}{
			"plugin": act.Plugin, "command": act.Command,
		})
	}
}

func (n *PluginNotifier) notifyExCommand(ex action.ExCommand) {
	switch exCommandVerb(ex.Line) {
	case "w", "write", "wq", "x":
		n.Manager.Emit("file:saved", map[string]interface{}{"line": ex.Line})
	case "e", "edit":
		n.Manager.Emit("file:opened", map[string]interface{}{"line": ex.Line})
	default:
		n.Manager.Emit("command:executed", map[string]interface{}{"line": ex.Line})
	}
}

// NotifyResize broadcasts editor:resize; called directly from
// Editor.handleEvent's EventResize case since resizes aren't routed
// through dispatch/action.Action.
func (n *PluginNotifier) NotifyResize(width, height int) {
	if n.Manager == nil {
		return
	}
	n.Manager.Emit("editor:resize", map[string]interface{}{"width": width, "height": height})
}
