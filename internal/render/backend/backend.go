// Package backend drives an actual terminal with gdamore/tcell/v2: it
// turns tcell's input events into keymap.Key values the editor's main
// loop can feed to a Registry, and turns a render.Grid's Diff output
// into tcell SetContent calls. Grounded on teacher
// internal/renderer/backend/terminal.go's Backend implementation, with
// the teacher's own Key/Event enum collapsed into keymap.Key since this
// editor already has one key representation shared with config binding.
package backend

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/codersauce/red/internal/keymap"
	"github.com/codersauce/red/internal/render"
	"github.com/codersauce/red/internal/render/style"
)

// EventType identifies the kind of input Poll returned.
type EventType uint8

const (
	EventNone EventType = iota
	EventKey
	EventMouse
	EventResize
	EventPaste
	EventFocus
)

// MouseButton identifies which mouse button (if any) a mouse event reports.
type MouseButton uint8

const (
	MouseNone MouseButton = iota
	MouseLeft
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// Event is one terminal input event, normalized to the editor's own
// vocabulary: a key event carries a keymap.Key directly so the main
// loop can pass it straight to keymap.Registry.Lookup.
type Event struct {
	Type EventType

	Key keymap.Key

	MouseX, MouseY int
	MouseButton    MouseButton

	Width, Height int

	// PasteStart is true for the EventPaste that opens bracketed paste
	// and false for the one that closes it; the runes pasted in between
	// arrive as ordinary EventKey events, matching tcell's own model.
	PasteStart bool

	Focused bool
}

// Backend is the terminal surface the editor draws frames onto and
// reads input from. Terminal is the only production implementation;
// tests use a fake that satisfies this interface directly since, unlike
// teacher's NullBackend, this editor's render pipeline is pure
// (render.Compose/Diff) and doesn't need a backend double to exercise it.
type Backend interface {
	Init() error
	Close()
	Size() (width, height int)
	PollEvent() Event
	PostEvent(Event)
	Apply(ops []render.Op)
	ShowCursor(row, col int)
	HideCursor()
	Beep()
	Suspend() error
	Resume() error
}

// Terminal implements Backend using tcell.
type Terminal struct {
	screen tcell.Screen
	mu     sync.Mutex

	pasting bool
}

// NewTerminal constructs a Terminal backed by a fresh tcell screen. The
// screen isn't touched until Init is called.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("backend: creating tcell screen: %w", err)
	}
	return &Terminal{screen: screen}, nil
}

func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("backend: initializing terminal: %w", err)
	}
	t.screen.EnableMouse()
	t.screen.EnablePaste()
	t.screen.Clear()
	return nil
}

func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.Fini()
}

func (t *Terminal) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.screen.Size()
}

// PollEvent blocks for the next terminal event and normalizes it into
// an Event. It returns EventNone for tcell event types this editor
// doesn't model (e.g. interrupt).
func (t *Terminal) PollEvent() Event {
	ev := t.screen.PollEvent()
	return t.convert(ev)
}

func (t *Terminal) PostEvent(e Event) {
	var tev tcell.Event
	switch e.Type {
	case EventKey:
		tev = tcell.NewEventKey(convertKeyToTcell(e.Key), e.Key.Rune, convertModToTcell(e.Key.Mod))
	default:
		return
	}
	_ = t.screen.PostEvent(tev)
}

// Apply flushes a render.Diff op sequence to the terminal, then shows
// the updated frame in one paint.
func (t *Terminal) Apply(ops []render.Op) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case render.OpWrite:
			col := op.Col
			for _, cell := range op.Cells {
				if cell.Continuation {
					col++
					continue
				}
				runes := []rune(cell.Grapheme)
				var main rune
				var comb []rune
				if len(runes) > 0 {
					main, comb = runes[0], runes[1:]
				} else {
					main = ' '
				}
				t.screen.SetContent(col, op.Row, main, comb, convertStyleToTcell(cell.Style))
				col++
			}
		}
	}
	t.screen.Show()
}

func (t *Terminal) ShowCursor(row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.ShowCursor(col, row)
}

func (t *Terminal) HideCursor() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.HideCursor()
}

func (t *Terminal) Beep() {
	_ = t.screen.Beep()
}

func (t *Terminal) Suspend() error { return t.screen.Suspend() }
func (t *Terminal) Resume() error  { return t.screen.Resume() }

func (t *Terminal) convert(ev tcell.Event) Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return Event{Type: EventKey, Key: convertTcellKey(e)}
	case *tcell.EventMouse:
		x, y := e.Position()
		return Event{Type: EventMouse, MouseX: x, MouseY: y, MouseButton: convertTcellMouse(e.Buttons())}
	case *tcell.EventResize:
		w, h := e.Size()
		return Event{Type: EventResize, Width: w, Height: h}
	case *tcell.EventPaste:
		t.pasting = e.Start()
		return Event{Type: EventPaste, PasteStart: e.Start()}
	case *tcell.EventFocus:
		return Event{Type: EventFocus, Focused: e.Focused}
	default:
		return Event{Type: EventNone}
	}
}

// convertTcellKey maps a tcell key event onto keymap.Key, the same
// vocabulary the default keymap.Set is bound in.
func convertTcellKey(e *tcell.EventKey) keymap.Key {
	mod := convertTcellMod(e.Modifiers())
	if name, ok := namedKeys[e.Key()]; ok {
		return keymap.Key{Name: name, Mod: mod}
	}
	if e.Key() >= tcell.KeyCtrlA && e.Key() <= tcell.KeyCtrlZ {
		return keymap.Key{Rune: rune('a' + int(e.Key()-tcell.KeyCtrlA)), Mod: mod | keymap.ModCtrl}
	}
	return keymap.Key{Rune: e.Rune(), Mod: mod}
}

var namedKeys = map[tcell.Key]string{
	tcell.KeyEscape:    "Esc",
	tcell.KeyEnter:     "Enter",
	tcell.KeyTab:       "Tab",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyDelete:    "Delete",
	tcell.KeyInsert:    "Insert",
	tcell.KeyHome:      "Home",
	tcell.KeyEnd:       "End",
	tcell.KeyPgUp:      "PageUp",
	tcell.KeyPgDn:      "PageDown",
	tcell.KeyUp:        "Up",
	tcell.KeyDown:      "Down",
	tcell.KeyLeft:      "Left",
	tcell.KeyRight:     "Right",
	tcell.KeyF1:        "F1",
	tcell.KeyF2:        "F2",
	tcell.KeyF3:        "F3",
	tcell.KeyF4:        "F4",
	tcell.KeyF5:        "F5",
	tcell.KeyF6:        "F6",
	tcell.KeyF7:        "F7",
	tcell.KeyF8:        "F8",
	tcell.KeyF9:        "F9",
	tcell.KeyF10:       "F10",
	tcell.KeyF11:       "F11",
	tcell.KeyF12:       "F12",
}

// convertKeyToTcell is the inverse of convertTcellKey, used only by
// PostEvent to inject synthetic key events (plugin-driven key replay).
func convertKeyToTcell(k keymap.Key) tcell.Key {
	if k.Name == "" {
		if k.Mod&keymap.ModCtrl != 0 {
			return tcell.KeyCtrlA + tcell.Key(k.Rune-'a')
		}
		return tcell.KeyRune
	}
	for tk, name := range namedKeys {
		if name == k.Name {
			return tk
		}
	}
	return tcell.KeyRune
}

func convertTcellMod(m tcell.ModMask) keymap.Modifier {
	var out keymap.Modifier
	if m&tcell.ModShift != 0 {
		out |= keymap.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		out |= keymap.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		out |= keymap.ModAlt
	}
	return out
}

func convertModToTcell(m keymap.Modifier) tcell.ModMask {
	var out tcell.ModMask
	if m&keymap.ModShift != 0 {
		out |= tcell.ModShift
	}
	if m&keymap.ModCtrl != 0 {
		out |= tcell.ModCtrl
	}
	if m&keymap.ModAlt != 0 {
		out |= tcell.ModAlt
	}
	return out
}

func convertTcellMouse(b tcell.ButtonMask) MouseButton {
	switch {
	case b&tcell.Button1 != 0:
		return MouseLeft
	case b&tcell.Button2 != 0:
		return MouseMiddle
	case b&tcell.Button3 != 0:
		return MouseRight
	case b&tcell.WheelUp != 0:
		return MouseWheelUp
	case b&tcell.WheelDown != 0:
		return MouseWheelDown
	default:
		return MouseNone
	}
}

// convertStyleToTcell renders a style.Style into tcell's style value.
// Indexed colors store their palette index in R; true colors use all
// three channels.
func convertStyleToTcell(s style.Style) tcell.Style {
	ts := tcell.StyleDefault
	if !s.Fg.Default {
		ts = ts.Foreground(convertColorToTcell(s.Fg))
	}
	if !s.Bg.Default {
		ts = ts.Background(convertColorToTcell(s.Bg))
	}
	ts = ts.Bold(s.Attrs.Has(style.AttrBold))
	ts = ts.Dim(s.Attrs.Has(style.AttrDim))
	ts = ts.Italic(s.Attrs.Has(style.AttrItalic))
	ts = ts.Underline(s.Attrs.Has(style.AttrUnderline))
	ts = ts.Reverse(s.Attrs.Has(style.AttrReverse))
	ts = ts.StrikeThrough(s.Attrs.Has(style.AttrStrikethrough))
	return ts
}

func convertColorToTcell(c style.Color) tcell.Color {
	if c.Indexed {
		return tcell.PaletteColor(int(c.R))
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
