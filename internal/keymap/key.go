// Package keymap resolves terminal key events, through nested per-mode
// chord trees, into editor actions.
package keymap

import (
	"fmt"
	"strings"
)

// Modifier is a bitset of key modifiers.
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// Key identifies one keypress: either a printable rune or a named
// special key (Enter, Esc, arrows, function keys, ...).
type Key struct {
	Rune rune   // set when Name == ""
	Name string // "Enter", "Esc", "Up", "F1", "Tab", "Backspace", ...
	Mod  Modifier
}

// String renders a Key the way keymap config and log lines format chords,
// e.g. "Ctrl-w", "g", "F5".
func (k Key) String() string {
	var sb strings.Builder
	if k.Mod&ModCtrl != 0 {
		sb.WriteString("Ctrl-")
	}
	if k.Mod&ModAlt != 0 {
		sb.WriteString("Alt-")
	}
	if k.Mod&ModShift != 0 && k.Name != "" {
		sb.WriteString("Shift-")
	}
	if k.Name != "" {
		sb.WriteString(k.Name)
	} else {
		sb.WriteRune(k.Rune)
	}
	return sb.String()
}

// Equals reports whether two keys are the same chord element.
func (k Key) Equals(o Key) bool {
	return k.Rune == o.Rune && k.Name == o.Name && k.Mod == o.Mod
}

// R builds a plain-rune key with no modifiers.
func R(r rune) Key { return Key{Rune: r} }

// Named builds a named special key.
func Named(name string) Key { return Key{Name: name} }

// Ctrl builds a Ctrl-modified rune key, e.g. Ctrl('w') is Ctrl-w.
func Ctrl(r rune) Key { return Key{Rune: r, Mod: ModCtrl} }

// Sequence is a chord: one or more Keys pressed in order, e.g. "g g" or
// "Ctrl-w h".
type Sequence []Key

// String joins a Sequence's keys with spaces, e.g. "g g".
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = k.String()
	}
	return strings.Join(parts, " ")
}

// ParseSequence parses a space-separated chord string from config, e.g.
// "g g" or "Ctrl-w h", into a Sequence.
func ParseSequence(s string) (Sequence, error) {
	fields := strings.Fields(s)
	seq := make(Sequence, 0, len(fields))
	for _, f := range fields {
		k, err := parseKey(f)
		if err != nil {
			return nil, err
		}
		seq = append(seq, k)
	}
	return seq, nil
}

func parseKey(s string) (Key, error) {
	var mod Modifier
	for {
		switch {
		case strings.HasPrefix(s, "Ctrl-"):
			mod |= ModCtrl
			s = s[len("Ctrl-"):]
		case strings.HasPrefix(s, "Alt-"):
			mod |= ModAlt
			s = s[len("Alt-"):]
		case strings.HasPrefix(s, "Shift-"):
			mod |= ModShift
			s = s[len("Shift-"):]
		default:
			goto done
		}
	}
done:
	if s == "" {
		return Key{}, fmt.Errorf("empty key in chord")
	}
	runes := []rune(s)
	if len(runes) == 1 {
		return Key{Rune: runes[0], Mod: mod}, nil
	}
	return Key{Name: s, Mod: mod}, nil
}
