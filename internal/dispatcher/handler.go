package dispatcher

import "github.com/codersauce/red/internal/action"

// Handler processes every action in one family (cursor motions, text
// edits, mode transitions, window operations, ...), mirroring the
// teacher's one-handler-per-namespace convention
// (dispatcher/handlers/cursor, .../editor, .../window, ...).
type Handler interface {
	// Namespace names the family this handler owns, for logging and
	// diagnostics (e.g. "motion", "editor", "window").
	Namespace() string
	// CanHandle reports whether this handler processes actions with the
	// given action.Action.Name().
	CanHandle(name string) bool
	// Handle executes a on ctx and returns the outcome. Handle is only
	// ever called after CanHandle(a.Name()) returned true.
	Handle(a action.Action, ctx *Context) Result
}
