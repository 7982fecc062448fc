package lsp

import (
	"context"
	"encoding/json"
	"sync"
)

// Manager routes LSP operations to the right per-language Server,
// spawning it lazily on first use. Grounded on teacher
// internal/lsp/manager.go, with supervision always on (spec.md §4.7's
// failure semantics are unconditional, unlike teacher's opt-in
// WithSupervision).
type Manager struct {
	mu          sync.RWMutex
	configs     map[string]ServerConfig
	supervisors map[string]*Supervisor
	folders     []WorkspaceFolder

	diagnostics *DiagnosticsService
	onProgress  func(token, value json.RawMessage)
	onLog       func(LogMessageParams)

	supervisorConfig SupervisorConfig
}

// NewManager constructs an empty Manager. Call RegisterServer for each
// configured language before use.
func NewManager(diag *DiagnosticsService) *Manager {
	return &Manager{
		configs:          make(map[string]ServerConfig),
		supervisors:      make(map[string]*Supervisor),
		diagnostics:      diag,
		supervisorConfig: DefaultSupervisorConfig(),
	}
}

// RegisterServer configures the command used to spawn language's server.
func (m *Manager) RegisterServer(language string, config ServerConfig) {
	m.mu.Lock()
	m.configs[language] = config
	m.mu.Unlock()
}

// SetWorkspaceFolders sets the workspace root(s) passed to every server.
func (m *Manager) SetWorkspaceFolders(folders []WorkspaceFolder) {
	m.mu.Lock()
	m.folders = folders
	for _, sv := range m.supervisors {
		sv.SetWorkspaceFolders(folders)
	}
	m.mu.Unlock()
}

// OnProgress registers the callback forwarded to every server's $/progress.
func (m *Manager) OnProgress(fn func(token, value json.RawMessage)) { m.onProgress = fn }

// OnLogMessage registers the callback forwarded to every server's
// window/logMessage and window/showMessage.
func (m *Manager) OnLogMessage(fn func(LogMessageParams)) { m.onLog = fn }

func (m *Manager) serverFor(ctx context.Context, language string) (*Server, error) {
	m.mu.RLock()
	sv, ok := m.supervisors[language]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if sv, ok = m.supervisors[language]; !ok {
			config, hasConfig := m.configs[language]
			if !hasConfig {
				m.mu.Unlock()
				return nil, &ServerError{Language: language, Err: ErrNoServer}
			}
			folders := m.folders
			sv = NewSupervisor(m.supervisorConfig, func() *Server {
				s := NewServer(config, language)
				if m.diagnostics != nil {
					s.OnDiagnostics(m.diagnostics.Publish)
				}
				if m.onProgress != nil {
					s.OnProgress(m.onProgress)
				}
				if m.onLog != nil {
					s.OnLogMessage(m.onLog)
				}
				return s
			})
			sv.SetWorkspaceFolders(folders)
			m.supervisors[language] = sv
		}
		m.mu.Unlock()
	}
	server, err := sv.EnsureRunning(ctx)
	if err != nil {
		return nil, &ServerError{Language: language, Err: err}
	}
	return server, nil
}

// Hover requests hover info at a codepoint position in a document.
func (m *Manager) Hover(ctx context.Context, language string, uri DocumentURI, line string, lineN, col int) (*Hover, error) {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil, err
	}
	params := HoverParams{TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     toProtocolPosition(s.Encoding(), line, lineN, col),
	}}
	var result Hover
	if err := s.Call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Definition requests the declaration site of the symbol at a position.
func (m *Manager) Definition(ctx context.Context, language string, uri DocumentURI, line string, lineN, col int) ([]Location, error) {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil, err
	}
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     toProtocolPosition(s.Encoding(), line, lineN, col),
	}
	var result []Location
	if err := s.Call(ctx, "textDocument/definition", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Completion requests completion candidates at a position.
func (m *Manager) Completion(ctx context.Context, language string, uri DocumentURI, line string, lineN, col int) (*CompletionList, error) {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil, err
	}
	params := CompletionParams{TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     toProtocolPosition(s.Encoding(), line, lineN, col),
	}}
	var raw json.RawMessage
	if err := s.Call(ctx, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	return ParseCompletionResult(raw)
}

// CodeAction requests fixes/refactors applicable to a range.
func (m *Manager) CodeAction(ctx context.Context, language string, uri DocumentURI, rng Range, diags []Diagnostic) ([]CodeAction, error) {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil, err
	}
	params := CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Range:        rng,
		Context:      CodeActionContext{Diagnostics: diags},
	}
	var result []CodeAction
	if err := s.Call(ctx, "textDocument/codeAction", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Formatting requests document-wide formatting edits.
func (m *Manager) Formatting(ctx context.Context, language string, uri DocumentURI, opts FormattingOptions) ([]TextEdit, error) {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil, err
	}
	params := DocumentFormattingParams{TextDocument: TextDocumentIdentifier{URI: uri}, Options: opts}
	var result []TextEdit
	if err := s.Call(ctx, "textDocument/formatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// notify sends a did{Open,Change,Save,Close} notification to language's
// server, swallowing every error (no server, ErrServerUnavailable, a
// failed write): notifications are best-effort, unlike requests.
func (m *Manager) notify(ctx context.Context, language string, method string, params any) error {
	s, err := m.serverFor(ctx, language)
	if err != nil {
		return nil
	}
	if err := s.Notify(ctx, method, params); err != nil {
		return nil
	}
	return nil
}

// Shutdown tears down every spawned server.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sv := range m.supervisors {
		sv.Shutdown(ctx)
	}
}
