package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/lsp"
)

// LSPBridge adapts an lsp.Manager/lsp.DocumentManager pair to the
// editor.Notifier interface and resolves a staged action.LSPRequest
// into a concrete call, so the dispatcher and the lsp package never
// import each other directly. Constructed in cmd/red and handed to
// Editor.SetNotifiers.
type LSPBridge struct {
	Manager     *lsp.Manager
	Docs        *lsp.DocumentManager
	Diagnostics *lsp.DiagnosticsService

	// RequestTimeout bounds each LSP round trip. Zero means 5s.
	RequestTimeout time.Duration
}

func (b *LSPBridge) timeout() time.Duration {
	if b.RequestTimeout <= 0 {
		return 5 * time.Second
	}
	return b.RequestTimeout
}

// NotifyEdit satisfies Notifier but does no work itself: editor.dispatch
// type-asserts e.lsp to DocumentSyncer and calls SyncDocument with the
// buffer it already has in hand, which needs the buffer's content and
// not just its ID.
func (b *LSPBridge) NotifyEdit(buffer.ID) {}

// NotifyPlugin is a no-op: plugin events go through the separate
// PluginNotifier handed to Editor.SetNotifiers.
func (b *LSPBridge) NotifyPlugin(a action.Action) {}

// DocumentSyncer is the richer interface editor.dispatch looks for on
// the configured LSP Notifier, since action.Effects only carries a
// buffer.ID and DocumentManager needs the buffer's path, language, and
// content to track it.
type DocumentSyncer interface {
	OpenDocument(buf *buffer.Buffer)
	SyncDocument(buf *buffer.Buffer)
	SaveDocument(buf *buffer.Buffer)
	CloseDocument(buf *buffer.Buffer)
}

func (b *LSPBridge) uriFor(buf *buffer.Buffer) (lsp.DocumentURI, string, bool) {
	p := buf.Path()
	if p == nil || *p == "" {
		return "", "", false
	}
	return lsp.FilePathToURI(*p), *p, true
}

// OpenDocument sends textDocument/didOpen for buf, if it has a path.
func (b *LSPBridge) OpenDocument(buf *buffer.Buffer) {
	if b.Docs == nil {
		return
	}
	_, path, ok := b.uriFor(buf)
	if !ok {
		return
	}
	b.Docs.Open(context.Background(), path, buf.Language(), buf.Text())
}

// SyncDocument records buf's latest content, scheduling (or sending, if
// undebounced) textDocument/didChange.
func (b *LSPBridge) SyncDocument(buf *buffer.Buffer) {
	if b.Docs == nil {
		return
	}
	uri, _, ok := b.uriFor(buf)
	if !ok {
		return
	}
	if b.Docs.Lookup(uri) == nil {
		b.OpenDocument(buf)
		return
	}
	b.Docs.Change(uri, buf.Text(), buffer.ChangeEvent{})
}

// SaveDocument flushes pending changes and sends textDocument/didSave.
func (b *LSPBridge) SaveDocument(buf *buffer.Buffer) {
	if b.Docs == nil {
		return
	}
	uri, _, ok := b.uriFor(buf)
	if !ok {
		return
	}
	b.Docs.Save(context.Background(), uri)
}

// CloseDocument sends textDocument/didClose, e.g. when a buffer is
// dropped from a closed window.
func (b *LSPBridge) CloseDocument(buf *buffer.Buffer) {
	if b.Docs == nil {
		return
	}
	uri, _, ok := b.uriFor(buf)
	if !ok {
		return
	}
	b.Docs.Close(context.Background(), uri)
}

// Resolve executes the LSP request staged by dispatcher.AsyncHandler
// against buf's current content and pos, flushing any pending
// didChange first per spec.md §4.7 invariant 1, and returns a
// human-readable summary for the status line.
func (b *LSPBridge) Resolve(req action.LSPRequest, buf *buffer.Buffer, pos buffer.Position) (string, error) {
	if b.Manager == nil || b.Docs == nil {
		return "", fmt.Errorf("lsp: not configured")
	}
	path := ""
	if p := buf.Path(); p != nil {
		path = *p
	}
	if path == "" {
		return "", fmt.Errorf("lsp: buffer has no path")
	}
	uri := lsp.FilePathToURI(path)
	b.Docs.FlushPending(uri)

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout())
	defer cancel()

	lang := buf.Language()
	line := buf.Line(pos.Line)

	switch req.Kind {
	case action.LSPHover:
		hov, err := b.Manager.Hover(ctx, lang, uri, line, pos.Line, pos.Col)
		if err != nil {
			return "", err
		}
		if hov == nil {
			return "no hover information", nil
		}
		return hov.Contents.Value, nil
	case action.LSPDefinition:
		locs, err := b.Manager.Definition(ctx, lang, uri, line, pos.Line, pos.Col)
		if err != nil {
			return "", err
		}
		if len(locs) == 0 {
			return "no definition found", nil
		}
		p := lsp.URIToFilePath(locs[0].URI)
		return fmt.Sprintf("%s:%d:%d", p, locs[0].Range.Start.Line+1, locs[0].Range.Start.Character+1), nil
	case action.LSPCompletion:
		list, err := b.Manager.Completion(ctx, lang, uri, line, pos.Line, pos.Col)
		if err != nil {
			return "", err
		}
		if list == nil || len(list.Items) == 0 {
			return "no completions", nil
		}
		return fmt.Sprintf("%d completions", len(list.Items)), nil
	case action.LSPCodeAction:
		rng := lsp.Range{Start: lsp.Position{Line: pos.Line, Character: pos.Col}, End: lsp.Position{Line: pos.Line, Character: pos.Col}}
		acts, err := b.Manager.CodeAction(ctx, lang, uri, rng, nil)
		if err != nil {
			return "", err
		}
		if len(acts) == 0 {
			return "no code actions", nil
		}
		return fmt.Sprintf("%d code actions available", len(acts)), nil
	case action.LSPFormatting:
		edits, err := b.Manager.Formatting(ctx, lang, uri, lsp.FormattingOptions{TabSize: 4, InsertSpaces: true})
		if err != nil {
			return "", err
		}
		if len(edits) == 0 {
			return "already formatted", nil
		}
		return fmt.Sprintf("%d formatting edits (apply not yet wired)", len(edits)), nil
	default:
		return "", fmt.Errorf("lsp: unknown request kind %v", req.Kind)
	}
}
