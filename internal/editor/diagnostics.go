package editor

import "github.com/codersauce/red/internal/lsp"

// diagnosticsAdapter implements render.DiagnosticsSource over an
// lsp.DiagnosticsService, converting the buffer's file path to the
// DocumentURI diagnostics are keyed by so render has no LSP dependency
// beyond the wire Diagnostic type.
type diagnosticsAdapter struct {
	svc *lsp.DiagnosticsService
}

// NewDiagnosticsSource wraps svc for Editor.SetDiagnostics.
func NewDiagnosticsSource(svc *lsp.DiagnosticsService) *diagnosticsAdapter {
	return &diagnosticsAdapter{svc: svc}
}

func (a *diagnosticsAdapter) For(path string) []lsp.Diagnostic {
	if a.svc == nil || path == "" {
		return nil
	}
	return a.svc.For(lsp.FilePathToURI(path))
}
