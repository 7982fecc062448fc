// Package mode defines the editor's modal states and the per-mode
// fallback handling for keys a window's keymap doesn't bind.
package mode

import "github.com/codersauce/red/internal/action"

// Mode is one of the editor's closed set of modal states.
type Mode uint8

const (
	Normal Mode = iota
	Insert
	Visual
	VisualLine
	VisualBlock
	Command
	Search
)

// String returns the mode's keymap-registry name, e.g. "Normal". This
// is the string keymap.Set.Mode expects.
func (m Mode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case Insert:
		return "Insert"
	case Visual:
		return "Visual"
	case VisualLine:
		return "VisualLine"
	case VisualBlock:
		return "VisualBlock"
	case Command:
		return "Command"
	case Search:
		return "Search"
	default:
		return "Unknown"
	}
}

// IsVisual reports whether m is one of the three Visual-family modes.
func (m Mode) IsVisual() bool {
	return m == Visual || m == VisualLine || m == VisualBlock
}

// UnmappedResult is what a mode's fallback Handler returns for a key
// its window's keymap registry didn't bind (or only partially bound, as
// an abandoned chord prefix).
type UnmappedResult struct {
	// Action is non-nil when the fallback itself resolves to an action,
	// e.g. Insert mode turning a plain printable rune into InsertText.
	Action action.Action
	// Handled is true if the key was consumed even when Action is nil
	// (e.g. a command-line mode appending to its own input buffer
	// directly rather than producing a dispatchable action).
	Handled bool
}

// Handler supplies the per-mode behavior for keys that reach no keymap
// binding. Normal mode has no fallback (bare letters are simply
// unmapped); Insert/Command/Search modes turn unmapped printable keys
// into literal input.
type Handler interface {
	HandleUnmapped(k Key) UnmappedResult
}

// Key is the minimal key shape mode handlers need: a possible literal
// rune, since Handler must not import package keymap (mode is lower in
// the dependency graph; keymap.Key carries modifiers the fallback
// handlers don't need to interpret).
type Key struct {
	Rune      rune
	Name      string
	HasRune   bool
	IsBackspc bool
}

// insertHandler turns unmapped printable runes into literal insertion,
// matching the "everything not a command is text" rule of Insert mode.
type insertHandler struct{}

func (insertHandler) HandleUnmapped(k Key) UnmappedResult {
	if k.HasRune {
		return UnmappedResult{Action: action.InsertText{Text: string(k.Rune)}}
	}
	return UnmappedResult{}
}

// lineInputHandler accumulates unmapped printable runes into a
// caller-owned line buffer rather than producing an Action directly;
// used by Command and Search modes, whose input lives on the active
// window until Enter commits it.
type lineInputHandler struct{}

func (lineInputHandler) HandleUnmapped(k Key) UnmappedResult {
	if k.HasRune {
		return UnmappedResult{Handled: true}
	}
	return UnmappedResult{}
}

// normalHandler has no fallback: an unmapped key in Normal or Visual
// mode is simply ignored.
type normalHandler struct{}

func (normalHandler) HandleUnmapped(Key) UnmappedResult { return UnmappedResult{} }

// HandlerFor returns the fallback Handler for m.
func HandlerFor(m Mode) Handler {
	switch m {
	case Insert:
		return insertHandler{}
	case Command, Search:
		return lineInputHandler{}
	default:
		return normalHandler{}
	}
}
