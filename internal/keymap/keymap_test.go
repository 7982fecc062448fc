package keymap

import (
	"testing"

	"github.com/codersauce/red/internal/action"
)

func TestParseSequenceSingleRune(t *testing.T) {
	seq, err := ParseSequence("g")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq) != 1 || seq[0].Rune != 'g' {
		t.Fatalf("unexpected sequence: %+v", seq)
	}
}

func TestParseSequenceModifiersAndNamed(t *testing.T) {
	seq, err := ParseSequence("Ctrl-w h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(seq))
	}
	if seq[0].Rune != 'w' || seq[0].Mod != ModCtrl {
		t.Fatalf("unexpected first key: %+v", seq[0])
	}
	if seq[1].Rune != 'h' {
		t.Fatalf("unexpected second key: %+v", seq[1])
	}
	if seq.String() != "Ctrl-w h" {
		t.Fatalf("round-trip string mismatch: %q", seq.String())
	}
}

func TestParseSequenceEmptyKeyErrors(t *testing.T) {
	if _, err := ParseSequence("Ctrl-"); err == nil {
		t.Fatalf("expected error for dangling modifier")
	}
}

func TestRegistrySingleKeyMatch(t *testing.T) {
	r := NewRegistry()
	r.Bind(Sequence{R('x')}, action.DeleteChars{Direction: action.DeleteForward, Count: 1})

	result, act := r.Lookup(nil, R('x'))
	if result != Matched {
		t.Fatalf("expected Matched, got %v", result)
	}
	if act.Name() != "editor.delete" {
		t.Fatalf("unexpected action: %+v", act)
	}
}

func TestRegistryPendingThenMatch(t *testing.T) {
	r := NewRegistry()
	r.Bind(Sequence{R('g'), R('g')}, action.Motion{Kind: action.MoveBufferStart})

	result, _ := r.Lookup(nil, R('g'))
	if result != Pending {
		t.Fatalf("expected Pending on first 'g', got %v", result)
	}
	result, act := r.Lookup(Sequence{R('g')}, R('g'))
	if result != Matched {
		t.Fatalf("expected Matched on second 'g', got %v", result)
	}
	if act.(action.Motion).Kind != action.MoveBufferStart {
		t.Fatalf("unexpected action: %+v", act)
	}
}

func TestRegistryPrefixIsAlsoBoundChord(t *testing.T) {
	// "g" bound standalone AND "g g" bound as a longer chord: typing
	// a key that doesn't continue the chord should fall back to the
	// standalone binding's behavior being the caller's job, but Lookup
	// itself must still report the single-key match correctly when no
	// further key has been typed yet.
	r := NewRegistry()
	r.Bind(Sequence{R('g')}, action.Motion{Kind: action.MoveDown})
	r.Bind(Sequence{R('g'), R('g')}, action.Motion{Kind: action.MoveBufferStart})

	result, act := r.Lookup(nil, R('g'))
	if result != Matched {
		t.Fatalf("expected Matched for bound prefix, got %v", result)
	}
	if act.(action.Motion).Kind != action.MoveDown {
		t.Fatalf("unexpected action: %+v", act)
	}
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Bind(Sequence{R('x')}, action.DeleteChars{})

	result, _ := r.Lookup(nil, R('z'))
	if result != NoMatch {
		t.Fatalf("expected NoMatch, got %v", result)
	}
}

func TestRegistryUnbind(t *testing.T) {
	r := NewRegistry()
	r.Bind(Sequence{R('x')}, action.DeleteChars{})
	r.Unbind(Sequence{R('x')})

	result, _ := r.Lookup(nil, R('x'))
	if result != NoMatch {
		t.Fatalf("expected NoMatch after unbind, got %v", result)
	}
}

func TestDefaultSetHasNormalAndInsertModes(t *testing.T) {
	s := Default()
	result, act := s.Mode("Normal").Lookup(nil, R('i'))
	if result != Matched || act.(action.ChangeMode).To != "Insert" {
		t.Fatalf("expected Normal 'i' to enter Insert mode, got %v %+v", result, act)
	}
	result, _ = s.Mode("Normal").Lookup(nil, R('g'))
	if result != Pending {
		t.Fatalf("expected Normal 'g' to be pending (prefix of 'gg' and 'gd'), got %v", result)
	}
}

func TestBindStringPropagatesParseError(t *testing.T) {
	s := NewSet()
	if err := s.BindString("Normal", "Ctrl-", action.Undo{}); err == nil {
		t.Fatalf("expected parse error to propagate")
	}
}
