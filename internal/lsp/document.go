package lsp

import (
	"context"
	"sync"
	"time"

	"github.com/codersauce/red/internal/buffer"
)

// ManagedDocument tracks one open buffer's LSP-visible state: the
// version last flushed to its server, and the content the dispatcher
// last handed this package (didChange sends the whole new content,
// matching TextDocumentSyncKindFull — no incremental range tracking,
// since buffer.ChangeEvent only reports a line span, not column deltas,
// and most servers accept full sync anyway).
type ManagedDocument struct {
	URI      DocumentURI
	Path     string
	Language string
	Version  int
	Content  string
	flushed  bool
}

// notifier is the subset of *Manager's behavior DocumentManager needs,
// narrowed to an interface so tests can exercise debounce/version
// bookkeeping without spawning a real language server process.
type notifier interface {
	notify(ctx context.Context, language, method string, params any) error
}

// DocumentManager owns the open-document table and the debounce timer
// per document, grounded on teacher internal/lsp/document.go.
// FlushPending/FlushAll implement spec.md §4.7 invariant 1: every
// mutation's didChange must reach the server before any request whose
// result depends on that content.
type DocumentManager struct {
	mu        sync.Mutex
	documents map[DocumentURI]*ManagedDocument
	manager   notifier

	debounce time.Duration
	timers   map[DocumentURI]*time.Timer
}

// NewDocumentManager constructs a DocumentManager sending didChange
// notifications through mgr, debounced by delay (0 disables debouncing,
// flushing on every call).
func NewDocumentManager(mgr *Manager, delay time.Duration) *DocumentManager {
	return &DocumentManager{
		documents: make(map[DocumentURI]*ManagedDocument),
		manager:   mgr,
		debounce:  delay,
		timers:    make(map[DocumentURI]*time.Timer),
	}
}

// Open registers a buffer as open and sends didOpen.
func (dm *DocumentManager) Open(ctx context.Context, path, language, content string) DocumentURI {
	uri := FilePathToURI(path)
	dm.mu.Lock()
	dm.documents[uri] = &ManagedDocument{URI: uri, Path: path, Language: language, Version: 1, Content: content, flushed: true}
	dm.mu.Unlock()

	dm.manager.notify(ctx, language, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: language, Version: 1, Text: content},
	})
	return uri
}

// Change records a new full content for an open document and schedules
// (or immediately sends, if debounce is 0) the didChange notification.
// The ChangeEvent argument is not read: every call bumps the version and
// the notification always carries full content, per ManagedDocument's
// doc comment.
func (dm *DocumentManager) Change(uri DocumentURI, content string, _ buffer.ChangeEvent) {
	dm.mu.Lock()
	doc, ok := dm.documents[uri]
	if !ok {
		dm.mu.Unlock()
		return
	}
	doc.Version++
	doc.Content = content
	doc.flushed = false
	if dm.debounce <= 0 {
		dm.mu.Unlock()
		dm.flush(uri)
		return
	}
	if t, pending := dm.timers[uri]; pending {
		t.Stop()
	}
	dm.timers[uri] = time.AfterFunc(dm.debounce, func() { dm.flush(uri) })
	dm.mu.Unlock()
}

// flush sends a pending didChange for uri, if any, taking dm.mu itself.
func (dm *DocumentManager) flush(uri DocumentURI) {
	dm.mu.Lock()
	doc, ok := dm.documents[uri]
	if !ok || doc.flushed {
		dm.mu.Unlock()
		return
	}
	doc.flushed = true
	delete(dm.timers, uri)
	language, version, content := doc.Language, doc.Version, doc.Content
	dm.mu.Unlock()

	dm.manager.notify(context.Background(), language, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier: TextDocumentIdentifier{URI: uri}, Version: version},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: content}},
	})
}

// FlushPending forces any debounced didChange for uri to send now.
// editor.LSPBridge.Resolve calls this before issuing a content-dependent LSP
// request (hover, definition, completion, codeAction, formatting) so
// the server never answers against stale content.
func (dm *DocumentManager) FlushPending(uri DocumentURI) { dm.flush(uri) }

// FlushAll forces every debounced didChange to send now, e.g. before a
// workspace-wide operation.
func (dm *DocumentManager) FlushAll() {
	dm.mu.Lock()
	uris := make([]DocumentURI, 0, len(dm.documents))
	for uri := range dm.documents {
		uris = append(uris, uri)
	}
	dm.mu.Unlock()
	for _, uri := range uris {
		dm.flush(uri)
	}
}

// Save flushes pending changes and sends didSave.
func (dm *DocumentManager) Save(ctx context.Context, uri DocumentURI) {
	dm.FlushPending(uri)
	dm.mu.Lock()
	doc, ok := dm.documents[uri]
	dm.mu.Unlock()
	if !ok {
		return
	}
	dm.manager.notify(ctx, doc.Language, "textDocument/didSave", DidSaveTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Text:         doc.Content,
	})
}

// Close sends didClose and forgets the document.
func (dm *DocumentManager) Close(ctx context.Context, uri DocumentURI) {
	dm.mu.Lock()
	doc, ok := dm.documents[uri]
	if ok {
		if t, pending := dm.timers[uri]; pending {
			t.Stop()
			delete(dm.timers, uri)
		}
		delete(dm.documents, uri)
	}
	dm.mu.Unlock()
	if !ok {
		return
	}
	dm.manager.notify(ctx, doc.Language, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// Lookup returns the tracked document for uri, or nil.
func (dm *DocumentManager) Lookup(uri DocumentURI) *ManagedDocument {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.documents[uri]
}
