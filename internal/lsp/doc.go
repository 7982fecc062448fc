// Package lsp implements the editor's Language Server Protocol client:
// one child process per language tag, JSON-RPC framed over stdio,
// multiplexing requests (hover, definition, completion, code actions,
// formatting) against incoming diagnostics and progress notifications.
//
// Grounded on teacher internal/lsp, trimmed to the operations
// spec.md §4.7 actually names. Manager owns per-language Server
// lifecycle (lazy spawn, crash supervision); DocumentManager owns
// open-document bookkeeping and the debounced didChange/didSave/
// didClose traffic a dispatcher-level edit triggers; DiagnosticsService
// discards stale-version publishDiagnostics and translates $/progress
// notifications into the event shape package plugin's event bus
// expects.
//
// This package never talks to a *buffer.Buffer directly; callers pass
// it content strings and buffer.ChangeEvent values, keeping it usable
// from a future dispatcher handler without an import cycle back into
// package editor.
package lsp
