package lsp

import (
	"encoding/json"
	"net/url"
	"path/filepath"
)

// DocumentURI is an LSP file URI, e.g. "file:///home/u/main.go".
type DocumentURI string

// FilePathToURI converts an absolute or relative filesystem path to a
// file:// URI, grounded on teacher protocol.go's FilePathToURI.
func FilePathToURI(path string) DocumentURI {
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return DocumentURI(u.String())
}

// URIToFilePath converts a file:// URI back to a filesystem path.
func URIToFilePath(uri DocumentURI) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

// Position is a zero-based line/character location. Character is in
// UTF-16 code units unless the server negotiated utf-32 (see
// position.go), in which case it's codepoints.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans [Start, End).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location identifies a range within a document.
type Location struct {
	URI   DocumentURI `json:"uri"`
	Range Range       `json:"range"`
}

// TextDocumentIdentifier identifies an open document.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// VersionedTextDocumentIdentifier adds a version to TextDocumentIdentifier.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int `json:"version"`
}

// TextDocumentItem transfers a document's full content to the server.
type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

// TextDocumentPositionParams is the common shape of hover/definition/completion requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextEdit is one textual edit applicable to a document.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// TextDocumentContentChangeEvent describes one didChange edit. A nil
// Range means "replace the whole document" (full sync).
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// MarkupContent is hover/signature documentation content.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// WorkspaceFolder names one root of the project the servers operate over.
type WorkspaceFolder struct {
	URI  DocumentURI `json:"uri"`
	Name string      `json:"name"`
}

// TextDocumentSyncKind controls whether didChange sends the whole
// document or incremental ranges.
type TextDocumentSyncKind int

const (
	TextDocumentSyncKindNone        TextDocumentSyncKind = 0
	TextDocumentSyncKindFull        TextDocumentSyncKind = 1
	TextDocumentSyncKindIncremental TextDocumentSyncKind = 2
)

// --- initialize ---

// InitializeParams is sent as the first request to a freshly spawned server.
type InitializeParams struct {
	ProcessID             int                `json:"processId"`
	RootURI               DocumentURI        `json:"rootUri,omitempty"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions any                `json:"initializationOptions,omitempty"`
	WorkspaceFolders      []WorkspaceFolder  `json:"workspaceFolders,omitempty"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities    `json:"capabilities"`
	ServerInfo   *InitializeServerInfo `json:"serverInfo,omitempty"`
}

// InitializeServerInfo names the server implementation.
type InitializeServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializedParams is the empty payload of the initialized notification.
type InitializedParams struct{}

// ClientCapabilities declares what this client supports. Trimmed to the
// fields the editor's request set actually exercises.
type ClientCapabilities struct {
	General      *GeneralClientCapabilities      `json:"general,omitempty"`
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Workspace    *WorkspaceClientCapabilities     `json:"workspace,omitempty"`
}

// GeneralClientCapabilities carries the positionEncodings negotiation
// (spec.md §6): utf-32 first, utf-16 as the universally-supported
// fallback.
type GeneralClientCapabilities struct {
	PositionEncodings []string `json:"positionEncodings,omitempty"`
}

// TextDocumentClientCapabilities declares per-request-kind support.
type TextDocumentClientCapabilities struct {
	Completion *CompletionClientCapabilities `json:"completion,omitempty"`
	Hover      *HoverClientCapabilities      `json:"hover,omitempty"`
}

// CompletionClientCapabilities declares completion support.
type CompletionClientCapabilities struct {
	CompletionItem *CompletionItemCapabilities `json:"completionItem,omitempty"`
}

// CompletionItemCapabilities declares completion-item support.
type CompletionItemCapabilities struct {
	SnippetSupport bool `json:"snippetSupport,omitempty"`
}

// HoverClientCapabilities declares accepted hover content formats.
type HoverClientCapabilities struct {
	ContentFormat []string `json:"contentFormat,omitempty"`
}

// WorkspaceClientCapabilities declares workspace-level support.
type WorkspaceClientCapabilities struct {
	WorkspaceFolders bool `json:"workspaceFolders,omitempty"`
}

// DefaultClientCapabilities returns the capability set every spawned
// server is initialized with.
func DefaultClientCapabilities() ClientCapabilities {
	return ClientCapabilities{
		General: &GeneralClientCapabilities{PositionEncodings: []string{"utf-32", "utf-16"}},
		TextDocument: &TextDocumentClientCapabilities{
			Completion: &CompletionClientCapabilities{CompletionItem: &CompletionItemCapabilities{SnippetSupport: false}},
			Hover:      &HoverClientCapabilities{ContentFormat: []string{"markdown", "plaintext"}},
		},
		Workspace: &WorkspaceClientCapabilities{WorkspaceFolders: true},
	}
}

// ServerCapabilities is parsed from the initialize result. Fields this
// client doesn't act on are left to gjson lookups on the raw payload
// (see position.go's encoding negotiation) rather than grown here.
type ServerCapabilities struct {
	PositionEncoding string `json:"positionEncoding,omitempty"`
	TextDocumentSync any    `json:"textDocumentSync,omitempty"`
}

// --- diagnostics ---

// Diagnostic is one server-reported issue in a document.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     any                `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// DiagnosticSeverity ranks a Diagnostic.
type DiagnosticSeverity int

const (
	DiagnosticSeverityError       DiagnosticSeverity = 1
	DiagnosticSeverityWarning     DiagnosticSeverity = 2
	DiagnosticSeverityInformation DiagnosticSeverity = 3
	DiagnosticSeverityHint        DiagnosticSeverity = 4
)

// PublishDiagnosticsParams is the payload of textDocument/publishDiagnostics.
type PublishDiagnosticsParams struct {
	URI     DocumentURI  `json:"uri"`
	Version int          `json:"version,omitempty"`
	Diags   []Diagnostic `json:"diagnostics"`
}

// --- completion ---

// CompletionParams is the payload of textDocument/completion.
type CompletionParams struct {
	TextDocumentPositionParams
}

// CompletionItem is one candidate in a completion response.
type CompletionItem struct {
	Label         string    `json:"label"`
	Kind          int       `json:"kind,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Documentation any       `json:"documentation,omitempty"`
	InsertText    string    `json:"insertText,omitempty"`
	TextEdit      *TextEdit `json:"textEdit,omitempty"`
}

// CompletionList is the textDocument/completion response shape.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// ParseCompletionResult accepts either a bare CompletionItem array or a
// CompletionList, which servers are free to return interchangeably.
func ParseCompletionResult(data json.RawMessage) (*CompletionList, error) {
	if len(data) == 0 {
		return &CompletionList{}, nil
	}
	var list CompletionList
	if err := json.Unmarshal(data, &list); err == nil && (list.Items != nil || list.IsIncomplete) {
		return &list, nil
	}
	var items []CompletionItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return &CompletionList{Items: items}, nil
}

// --- hover ---

// HoverParams is the payload of textDocument/hover.
type HoverParams struct {
	TextDocumentPositionParams
}

// Hover is the textDocument/hover response shape.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// --- code action / formatting ---

// CodeActionParams is the payload of textDocument/codeAction.
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

// CodeActionContext narrows codeAction results to the diagnostics in range.
type CodeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// CodeAction is one server-suggested fix or refactor.
type CodeAction struct {
	Title string         `json:"title"`
	Edit  *WorkspaceEdit `json:"edit,omitempty"`
}

// WorkspaceEdit bundles edits across one or more documents.
type WorkspaceEdit struct {
	Changes map[DocumentURI][]TextEdit `json:"changes,omitempty"`
}

// DocumentFormattingParams is the payload of textDocument/formatting.
type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

// FormattingOptions controls indent width/style.
type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

// --- did{Open,Change,Save,Close} ---

// DidOpenTextDocumentParams is the payload of textDocument/didOpen.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams is the payload of textDocument/didChange.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// DidSaveTextDocumentParams is the payload of textDocument/didSave.
type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         string                 `json:"text,omitempty"`
}

// DidCloseTextDocumentParams is the payload of textDocument/didClose.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// --- $/progress, window/* ---

// ProgressParams is the payload of a $/progress notification.
type ProgressParams struct {
	Token json.RawMessage `json:"token"`
	Value json.RawMessage `json:"value"`
}

// LogMessageParams is the payload of window/logMessage and window/showMessage.
type LogMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
