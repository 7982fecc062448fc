package keymap

import (
	"time"

	"github.com/codersauce/red/internal/action"
)

// ChordTimeout is how long the editor waits for the next key of a
// pending multi-key chord before giving up and treating the prefix as
// unmapped. Owned by the main loop as a deadline, never a per-chord
// goroutine timer, per the single-threaded event loop model.
const ChordTimeout = 500 * time.Millisecond

// node is one level of a mode's chord tree. A node with a non-nil
// action is a complete binding. A node without an action can be a
// prefix (e.g. "g" alone is unmapped in the default Normal map, but
// "g" "g" and "g" "d" are bound). A node may hold both an action and
// children; Lookup reports Matched as soon as it reaches such a node,
// so the longer chords under it are not reached.
type node struct {
	action   action.Action
	children map[Key]*node
}

func newNode() *node { return &node{children: make(map[Key]*node)} }

// Registry is one mode's chord tree.
type Registry struct {
	root *node
}

// NewRegistry returns an empty chord registry.
func NewRegistry() *Registry {
	return &Registry{root: newNode()}
}

// Bind registers seq to fire act. Bind panics on an empty sequence,
// since that can never be produced by a real keypress and indicates a
// config or default-table bug.
func (r *Registry) Bind(seq Sequence, act action.Action) {
	if len(seq) == 0 {
		panic("keymap: cannot bind an empty sequence")
	}
	n := r.root
	for _, k := range seq {
		child, ok := n.children[k]
		if !ok {
			child = newNode()
			n.children[k] = child
		}
		n = child
	}
	n.action = act
}

// Unbind removes whatever binding exists at seq, if any. It does not
// prune now-empty intermediate nodes; a plugin re-binding the same
// prefix later reuses them.
func (r *Registry) Unbind(seq Sequence) {
	n := r.root
	for _, k := range seq {
		child, ok := n.children[k]
		if !ok {
			return
		}
		n = child
	}
	n.action = nil
}

// LookupResult classifies the outcome of feeding one more key into a
// pending chord.
type LookupResult uint8

const (
	// NoMatch: this key cannot continue or complete any bound chord from
	// the current prefix. The caller should clear pending state and, if
	// the mode has an unmapped-key fallback (e.g. Insert mode inserting
	// the rune literally), invoke it instead.
	NoMatch LookupResult = iota
	// Pending: this key extends a valid prefix, but no complete binding
	// exists yet. The caller should hold the accumulated sequence and
	// wait up to ChordTimeout for the next key.
	Pending
	// Matched: this key completes a bound chord.
	Matched
)

// Lookup walks prefix+key from the registry root and reports whether it
// is a complete match, a pending prefix, or unbound. When Matched, act
// is the bound action; otherwise act is nil.
func (r *Registry) Lookup(prefix Sequence, key Key) (result LookupResult, act action.Action) {
	n := r.root
	for _, k := range prefix {
		child, ok := n.children[k]
		if !ok {
			return NoMatch, nil
		}
		n = child
	}
	child, ok := n.children[key]
	if !ok {
		return NoMatch, nil
	}
	if child.action != nil {
		return Matched, child.action
	}
	if len(child.children) == 0 {
		return NoMatch, nil
	}
	return Pending, nil
}

// Set is the full collection of per-mode registries the dispatcher
// consults. Mode names match internal/mode.Mode.String().
type Set struct {
	byMode map[string]*Registry
}

// NewSet returns an empty per-mode keymap set.
func NewSet() *Set {
	return &Set{byMode: make(map[string]*Registry)}
}

// Mode returns the registry for a mode, creating an empty one if this
// is the first binding seen for it.
func (s *Set) Mode(mode string) *Registry {
	r, ok := s.byMode[mode]
	if !ok {
		r = NewRegistry()
		s.byMode[mode] = r
	}
	return r
}

// BindString parses chord and binds it in mode, returning a parse error
// from config or plugin-supplied chord strings unchanged.
func (s *Set) BindString(mode, chord string, act action.Action) error {
	seq, err := ParseSequence(chord)
	if err != nil {
		return err
	}
	s.Mode(mode).Bind(seq, act)
	return nil
}

// Default returns the built-in Normal/Insert/Visual keymap set shipped
// before any user config or plugin rebinds are applied.
func Default() *Set {
	s := NewSet()
	n := s.Mode("Normal")

	n.Bind(Sequence{R('h')}, action.Motion{Kind: action.MoveLeft})
	n.Bind(Sequence{R('l')}, action.Motion{Kind: action.MoveRight})
	n.Bind(Sequence{R('k')}, action.Motion{Kind: action.MoveUp})
	n.Bind(Sequence{R('j')}, action.Motion{Kind: action.MoveDown})
	n.Bind(Sequence{Named("Left")}, action.Motion{Kind: action.MoveLeft})
	n.Bind(Sequence{Named("Right")}, action.Motion{Kind: action.MoveRight})
	n.Bind(Sequence{Named("Up")}, action.Motion{Kind: action.MoveUp})
	n.Bind(Sequence{Named("Down")}, action.Motion{Kind: action.MoveDown})
	n.Bind(Sequence{R('0')}, action.Motion{Kind: action.MoveLineStart})
	n.Bind(Sequence{R('$')}, action.Motion{Kind: action.MoveLineEnd})
	n.Bind(Sequence{R('^')}, action.Motion{Kind: action.MoveFirstNonBlank})
	n.Bind(Sequence{R('w')}, action.Motion{Kind: action.MoveWordForward})
	n.Bind(Sequence{R('b')}, action.Motion{Kind: action.MoveWordBackward})
	n.Bind(Sequence{R('e')}, action.Motion{Kind: action.MoveWordEndForward})
	n.Bind(Sequence{R('g'), R('g')}, action.Motion{Kind: action.MoveBufferStart})
	n.Bind(Sequence{R('G')}, action.Motion{Kind: action.MoveBufferEnd})
	n.Bind(Sequence{R('{')}, action.Motion{Kind: action.MoveParagraphBackward})
	n.Bind(Sequence{R('}')}, action.Motion{Kind: action.MoveParagraphForward})

	n.Bind(Sequence{R('i')}, action.ChangeMode{To: "Insert"})
	n.Bind(Sequence{R('a')}, action.Motion{Kind: action.MoveRight})
	n.Bind(Sequence{R('A')}, action.Motion{Kind: action.MoveLineEnd})
	n.Bind(Sequence{R('o')}, action.ChangeMode{To: "Insert"})
	n.Bind(Sequence{Named("Esc")}, action.ChangeMode{To: "Normal"})
	n.Bind(Sequence{R('v')}, action.EnterVisual{})
	n.Bind(Sequence{R('V')}, action.EnterVisual{Linewise: true})
	n.Bind(Sequence{Ctrl('v')}, action.EnterVisual{Blockwise: true})
	n.Bind(Sequence{R('x')}, action.DeleteChars{Direction: action.DeleteForward, Count: 1})
	n.Bind(Sequence{R('u')}, action.Undo{})
	n.Bind(Sequence{Ctrl('r')}, action.Redo{})
	n.Bind(Sequence{R('y'), R('y')}, action.Yank{Count: 1})
	n.Bind(Sequence{R('p')}, action.Paste{})
	n.Bind(Sequence{R('P')}, action.Paste{Before: true})
	n.Bind(Sequence{R(':')}, action.ChangeMode{To: "Command"})
	n.Bind(Sequence{R('/')}, action.ChangeMode{To: "Search"})

	n.Bind(Sequence{Ctrl('w'), R('s')}, action.Split{Orientation: action.SplitHorizontal})
	n.Bind(Sequence{Ctrl('w'), R('v')}, action.Split{Orientation: action.SplitVertical})
	n.Bind(Sequence{Ctrl('w'), R('c')}, action.CloseWindow{})
	n.Bind(Sequence{Ctrl('w'), R('h')}, action.FocusWindow{Direction: action.FocusLeft})
	n.Bind(Sequence{Ctrl('w'), R('l')}, action.FocusWindow{Direction: action.FocusRight})
	n.Bind(Sequence{Ctrl('w'), R('k')}, action.FocusWindow{Direction: action.FocusUp})
	n.Bind(Sequence{Ctrl('w'), R('j')}, action.FocusWindow{Direction: action.FocusDown})
	n.Bind(Sequence{Ctrl('w'), Ctrl('w')}, action.FocusWindow{Direction: action.FocusNext})

	n.Bind(Sequence{R('K')}, action.LSPRequest{Kind: action.LSPHover})
	n.Bind(Sequence{R('g'), R('d')}, action.LSPRequest{Kind: action.LSPDefinition})
	n.Bind(Sequence{Ctrl('n')}, action.LSPRequest{Kind: action.LSPCompletion})

	v := s.Mode("Visual")
	v.Bind(Sequence{Named("Esc")}, action.ChangeMode{To: "Normal"})
	v.Bind(Sequence{R('y')}, action.Yank{})
	v.Bind(Sequence{R('h')}, action.Motion{Kind: action.MoveLeft})
	v.Bind(Sequence{R('l')}, action.Motion{Kind: action.MoveRight})
	v.Bind(Sequence{R('k')}, action.Motion{Kind: action.MoveUp})
	v.Bind(Sequence{R('j')}, action.Motion{Kind: action.MoveDown})

	i := s.Mode("Insert")
	i.Bind(Sequence{Named("Esc")}, action.ChangeMode{To: "Normal"})
	i.Bind(Sequence{Named("Backspace")}, action.DeleteChars{Direction: action.DeleteBackward, Count: 1})
	i.Bind(Sequence{Named("Enter")}, action.InsertText{Text: "\n"})

	c := s.Mode("Command")
	c.Bind(Sequence{Named("Esc")}, action.ChangeMode{To: "Normal"})

	return s
}
