// Package action defines the editor's closed set of dispatchable
// primitives. Actions are plain values — comparable, loggable, and
// sendable across the event channel — so tests can execute them and
// assert on the returned Result without any subsystem performing a real
// side effect; only the Effects a Result declares decide whether the
// event loop redraws, flushes LSP notifications, or broadcasts to
// plugins.
package action

// Effects declares which side effects executing an action requires. The
// event loop coalesces these across every action dispatched in one turn
// instead of reacting to each action individually.
type Effects struct {
	Redraw          bool
	LSPNotify       bool
	PluginBroadcast bool
}

// Merge ORs two Effects together.
func (e Effects) Merge(o Effects) Effects {
	return Effects{
		Redraw:          e.Redraw || o.Redraw,
		LSPNotify:       e.LSPNotify || o.LSPNotify,
		PluginBroadcast: e.PluginBroadcast || o.PluginBroadcast,
	}
}

// Action is the marker interface every dispatchable primitive
// implements. Name identifies the action family for logging, key-map
// binding by name, and plugin execute(name, args) lookups. SideEffects
// declares, independent of execution, which side effects running this
// action requires — the dispatcher never inspects a Result to decide
// whether to redraw or notify LSP/plugins, it trusts this declaration,
// so actions can be executed in tests with no I/O subsystem wired up.
type Action interface {
	Name() string
	SideEffects() Effects
}

// MotionKind enumerates the grapheme/line/word motions bindable in
// Normal/Visual modes.
type MotionKind uint8

const (
	MoveLeft MotionKind = iota
	MoveRight
	MoveUp
	MoveDown
	MoveLineStart
	MoveLineEnd
	MoveFirstNonBlank
	MoveWordForward
	MoveWordBackward
	MoveWordEndForward
	MoveBufferStart
	MoveBufferEnd
	MoveParagraphForward
	MoveParagraphBackward
)

// Motion moves the active window's cursor. Count repeats the motion
// (vim-style counts, e.g. "3j"); zero and one are equivalent.
type Motion struct {
	Kind  MotionKind
	Count int
}

func (Motion) Name() string { return "motion" }

// InsertText inserts Text at the active cursor (or at every cursor in a
// multi-cursor selection, once that's wired — today, the active one).
type InsertText struct{ Text string }

func (InsertText) Name() string { return "editor.insert" }

// DeleteDirection distinguishes Backspace-style from Delete-style
// removal when there is no active selection.
type DeleteDirection uint8

const (
	DeleteBackward DeleteDirection = iota
	DeleteForward
)

// DeleteChars removes Count codepoints in Direction from the cursor, or
// the active selection if one exists.
type DeleteChars struct {
	Direction DeleteDirection
	Count     int
}

func (DeleteChars) Name() string { return "editor.delete" }

// ChangeMode switches the active window's mode.
type ChangeMode struct{ To string }

func (ChangeMode) Name() string { return "mode.change" }

// Undo pops and applies one undo group.
type Undo struct{}

func (Undo) Name() string { return "editor.undo" }

// Redo re-applies one undone group.
type Redo struct{}

func (Redo) Name() string { return "editor.redo" }

// SplitOrientation names the two ways a window can split.
type SplitOrientation uint8

const (
	SplitHorizontal SplitOrientation = iota
	SplitVertical
)

// Split divides the active window.
type Split struct{ Orientation SplitOrientation }

func (Split) Name() string { return "window.split" }

// CloseWindow closes the active window.
type CloseWindow struct{}

func (CloseWindow) Name() string { return "window.close" }

// FocusDirection names a window-focus target.
type FocusDirection uint8

const (
	FocusLeft FocusDirection = iota
	FocusRight
	FocusUp
	FocusDown
	FocusNext
	FocusPrev
)

// FocusWindow moves focus to another window.
type FocusWindow struct{ Direction FocusDirection }

func (FocusWindow) Name() string { return "window.focus" }

// ResizeWindow grows/shrinks the nearest ancestor split in Direction by
// Delta (a ratio delta, e.g. 0.05).
type ResizeWindow struct {
	Direction FocusDirection
	Delta     float64
}

func (ResizeWindow) Name() string { return "window.resize" }

// ExCommand runs a parsed `:` command line, e.g. "w", "q!", "e path".
type ExCommand struct{ Line string }

func (ExCommand) Name() string { return "editor.excommand" }

// PluginCommand dispatches a plugin-registered command by name.
type PluginCommand struct {
	Plugin        string
	Command       string
	Args          []string
	CorrelationID uint64
}

func (PluginCommand) Name() string { return "plugin.command" }

// LSPRequestKind enumerates the LSP requests bindable as editor actions.
type LSPRequestKind uint8

const (
	LSPHover LSPRequestKind = iota
	LSPDefinition
	LSPCompletion
	LSPCodeAction
	LSPFormatting
)

// LSPRequest triggers an LSP request for the active buffer's position.
type LSPRequest struct{ Kind LSPRequestKind }

func (LSPRequest) Name() string { return "lsp.request" }

// EnterVisual starts a Visual-family selection anchored at the current
// cursor.
type EnterVisual struct{ Linewise, Blockwise bool }

func (EnterVisual) Name() string { return "mode.visual" }

// Yank copies the active selection (or Count lines/chars) to the
// clipboard register.
type Yank struct{ Count int }

func (Yank) Name() string { return "editor.yank" }

// Paste inserts the clipboard register's content at the cursor.
type Paste struct{ Before bool }

func (Paste) Name() string { return "editor.paste" }

// Quit requests the editor shut down. Force bypasses the unsaved-changes
// check (":q!").
type Quit struct{ Force bool }

func (Quit) Name() string { return "editor.quit" }

func (Motion) SideEffects() Effects        { return Effects{Redraw: true, PluginBroadcast: true} }
func (InsertText) SideEffects() Effects    { return Effects{Redraw: true, LSPNotify: true, PluginBroadcast: true} }
func (DeleteChars) SideEffects() Effects   { return Effects{Redraw: true, LSPNotify: true, PluginBroadcast: true} }
func (ChangeMode) SideEffects() Effects    { return Effects{Redraw: true, PluginBroadcast: true} }
func (Undo) SideEffects() Effects          { return Effects{Redraw: true, LSPNotify: true} }
func (Redo) SideEffects() Effects          { return Effects{Redraw: true, LSPNotify: true} }
func (Split) SideEffects() Effects         { return Effects{Redraw: true} }
func (CloseWindow) SideEffects() Effects   { return Effects{Redraw: true} }
func (FocusWindow) SideEffects() Effects   { return Effects{Redraw: true} }
func (ResizeWindow) SideEffects() Effects  { return Effects{Redraw: true} }
func (ExCommand) SideEffects() Effects     { return Effects{Redraw: true, PluginBroadcast: true} }
func (PluginCommand) SideEffects() Effects { return Effects{Redraw: true} }
func (LSPRequest) SideEffects() Effects    { return Effects{LSPNotify: true} }
func (EnterVisual) SideEffects() Effects   { return Effects{Redraw: true} }
func (Yank) SideEffects() Effects          { return Effects{PluginBroadcast: true} }
func (Paste) SideEffects() Effects         { return Effects{Redraw: true, LSPNotify: true, PluginBroadcast: true} }
func (Quit) SideEffects() Effects          { return Effects{} }
