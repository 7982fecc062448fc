package render

import (
	"github.com/codersauce/red/internal/lsp"
	"github.com/codersauce/red/internal/render/style"
	"github.com/codersauce/red/internal/window"
)

// DiagnosticsSource looks up the live diagnostics for the file at path,
// keyed the way editor's adapter over lsp.DiagnosticsService resolves
// a buffer's path to its DocumentURI; render itself has no LSP
// dependency beyond the wire Diagnostic type.
type DiagnosticsSource interface {
	For(path string) []lsp.Diagnostic
}

var (
	diagError   = style.Default().WithFg(style.RGB(220, 50, 47)).WithAttrs(style.AttrUnderline)
	diagWarning = style.Default().WithFg(style.RGB(181, 137, 0)).WithAttrs(style.AttrUnderline)
	diagInfo    = style.Default().WithAttrs(style.AttrUnderline)
)

func severityStyle(sev lsp.DiagnosticSeverity) style.Style {
	switch sev {
	case lsp.DiagnosticSeverityError:
		return diagError
	case lsp.DiagnosticSeverityWarning:
		return diagWarning
	default:
		return diagInfo
	}
}

// drawDiagnostics underlines the span of each diagnostic touching a
// visible line. A terminal cell attribute can't express a true wavy
// squiggle, so AttrUnderline tinted by severity stands in for it.
func drawDiagnostics(g *Grid, win *window.Window, r window.Rect, diags []lsp.Diagnostic) {
	textRows := r.H - 1
	for _, d := range diags {
		if d.Range.End.Line < win.Top || d.Range.Start.Line >= win.Top+textRows {
			continue
		}
		st := severityStyle(d.Severity)
		for lineNo := d.Range.Start.Line; lineNo <= d.Range.End.Line; lineNo++ {
			if lineNo < win.Top || lineNo >= win.Top+textRows {
				continue
			}
			startCol, endCol := 0, r.W
			if lineNo == d.Range.Start.Line {
				startCol = d.Range.Start.Character - win.Left
			}
			if lineNo == d.Range.End.Line {
				endCol = d.Range.End.Character - win.Left
			}
			row := r.Y + (lineNo - win.Top)
			for col := startCol; col < endCol && col < r.W; col++ {
				if col < 0 {
					continue
				}
				cell := g.At(row, r.X+col)
				cell.Style = cell.Style.Merge(st)
				g.Set(row, r.X+col, cell)
			}
		}
	}
}
