package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := New(WithOutput(&buf), WithLevel(LevelWarn), WithComponent("test"))
	lg.Info("should not appear")
	lg.Warn("should appear: %d", 7)

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected Info to be filtered out, got %q", out)
	}
	if !strings.Contains(out, "should appear: 7") {
		t.Fatalf("expected Warn message, got %q", out)
	}
	if !strings.Contains(out, "[test]") {
		t.Fatalf("expected component tag, got %q", out)
	}
}

func TestWithDerivesComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(WithOutput(&buf), WithLevel(LevelDebug))
	derived := base.With("lsp")
	derived.Debug("hello")
	if !strings.Contains(buf.String(), "[lsp]") {
		t.Fatalf("expected derived logger's component tag, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": LevelDebug, "warn": LevelWarn, "error": LevelError, "bogus": LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopDiscardsOutput(t *testing.T) {
	lg := Nop()
	lg.Error("should be discarded")
}
