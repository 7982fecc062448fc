package lsp

import (
	"encoding/json"
	"testing"
)

func TestDiagnosticsServicePublishAndLookup(t *testing.T) {
	d := NewDiagnosticsService(nil)
	uri := DocumentURI("file:///a.go")
	d.Publish(uri, 1, []Diagnostic{{Message: "unused variable"}})
	got := d.For(uri)
	if len(got) != 1 || got[0].Message != "unused variable" {
		t.Fatalf("unexpected diagnostics: %+v", got)
	}
}

func TestDiagnosticsServiceEmptyPublishClears(t *testing.T) {
	d := NewDiagnosticsService(nil)
	uri := DocumentURI("file:///a.go")
	d.Publish(uri, 1, []Diagnostic{{Message: "x"}})
	d.Publish(uri, 2, nil)
	if got := d.For(uri); got != nil {
		t.Fatalf("expected diagnostics cleared, got %v", got)
	}
}

func TestDiagnosticsServiceDiscardsStaleVersion(t *testing.T) {
	current := 5
	lookup := func(DocumentURI) (int, bool) { return current, true }
	d := NewDiagnosticsService(lookup)
	uri := DocumentURI("file:///a.go")

	d.Publish(uri, 3, []Diagnostic{{Message: "stale"}})
	if got := d.For(uri); got != nil {
		t.Fatalf("expected stale publish discarded, got %v", got)
	}

	d.Publish(uri, 5, []Diagnostic{{Message: "current"}})
	if got := d.For(uri); len(got) != 1 || got[0].Message != "current" {
		t.Fatalf("expected current publish accepted, got %v", got)
	}
}

func TestDiagnosticsServiceClearAll(t *testing.T) {
	d := NewDiagnosticsService(nil)
	d.Publish("file:///a.go", 1, []Diagnostic{{Message: "a"}})
	d.Publish("file:///b.go", 1, []Diagnostic{{Message: "b"}})
	d.ClearAll()
	if d.For("file:///a.go") != nil || d.For("file:///b.go") != nil {
		t.Fatalf("expected ClearAll to wipe every document")
	}
}

func TestParseProgressDecodesStringToken(t *testing.T) {
	token, _ := json.Marshal("job-1")
	value, _ := json.Marshal(map[string]any{"kind": "report", "percentage": 40})
	ev := ParseProgress(token, value)
	if ev.Token != "job-1" || ev.Kind != "report" || ev.Percentage != 40 {
		t.Fatalf("unexpected progress event: %+v", ev)
	}
}
