package lsp

import (
	"encoding/json"
	"sync"
)

// ProgressEvent is the translated form of a $/progress notification,
// shaped to cross into package plugin's event bus as "lsp:progress"
// per spec.md §4.7 invariant 3 — this package has no dependency on
// plugin, so the translation lives here and the caller (editor.Editor)
// forwards the result.
type ProgressEvent struct {
	Token      string  `json:"token"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title,omitempty"`
	Message    string  `json:"message,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

type workDoneProgress struct {
	Kind       string  `json:"kind"`
	Title      string  `json:"title,omitempty"`
	Message    string  `json:"message,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// ParseProgress decodes a raw $/progress token+value pair into a
// ProgressEvent, accepting both string and numeric token encodings.
func ParseProgress(token, value json.RawMessage) ProgressEvent {
	var tok string
	if err := json.Unmarshal(token, &tok); err != nil {
		tok = string(token)
	}
	var v workDoneProgress
	_ = json.Unmarshal(value, &v)
	return ProgressEvent{Token: tok, Kind: v.Kind, Title: v.Title, Message: v.Message, Percentage: v.Percentage}
}

// BufferVersionLookup reports the live version of the buffer behind a
// document, so DiagnosticsService can discard a
// publish that arrives for an older version (spec.md §4.7 invariant 2).
type BufferVersionLookup func(uri DocumentURI) (version int, ok bool)

// DiagnosticsService holds the latest diagnostics per document and
// discards stale publishes, grounded on teacher
// internal/lsp/diagnostics.go's version comparison but simplified: the
// version to compare against is the live buffer's version (via
// lookup), not a separately tracked "version at publish time" field,
// since the dispatcher already has the authoritative buffer.
type DiagnosticsService struct {
	mu     sync.RWMutex
	byURI  map[DocumentURI][]Diagnostic
	lookup BufferVersionLookup
}

// NewDiagnosticsService constructs a DiagnosticsService. lookup may be
// nil, in which case every publish is accepted unconditionally (no
// version to compare against yet, e.g. before any buffer is open).
func NewDiagnosticsService(lookup BufferVersionLookup) *DiagnosticsService {
	return &DiagnosticsService{byURI: make(map[DocumentURI][]Diagnostic), lookup: lookup}
}

// Publish records diags for uri at version, discarding it if a newer
// version is already live for that document.
func (d *DiagnosticsService) Publish(uri DocumentURI, version int, diags []Diagnostic) {
	if d.lookup != nil {
		if current, ok := d.lookup(uri); ok && version != 0 && version < current {
			return
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(diags) == 0 {
		delete(d.byURI, uri)
		return
	}
	d.byURI[uri] = diags
}

// For returns the last-published diagnostics for uri.
func (d *DiagnosticsService) For(uri DocumentURI) []Diagnostic {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byURI[uri]
}

// Clear discards diagnostics for uri, e.g. when its server dies.
func (d *DiagnosticsService) Clear(uri DocumentURI) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byURI, uri)
}

// ClearAll discards every tracked diagnostic, e.g. when a supervised
// server exhausts its restart budget and its files' diagnostics go stale.
func (d *DiagnosticsService) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byURI = make(map[DocumentURI][]Diagnostic)
}
