package editor

import (
	"fmt"
	"time"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/dispatcher"
	"github.com/codersauce/red/internal/plugin/api"
	"github.com/codersauce/red/internal/render"
	"github.com/codersauce/red/internal/render/style"
)

// pluginCall is one plugin-goroutine-to-editor-loop round trip: run
// executes on the editor's own goroutine (Editor.Run's select loop),
// and its result is handed back on result. This is the channel review
// comment 3 calls the "plugin request" select source and comment 2's
// api.Gateway crosses through to reach live editor state without a
// second lock over window/buffer state.
type pluginCall struct {
	run    func(e *Editor) (interface{}, error)
	result chan pluginCallResult
}

type pluginCallResult struct {
	val interface{}
	err error
}

// gatewayTimeout bounds how long a plugin's Gateway call waits for the
// editor loop to service it or for the editor to answer. The loop only
// blocks a plugin call for the duration of one synchronous op (a
// buffer edit, a cursor read), so a multi-second stall means the loop
// itself is wedged, not merely busy.
const gatewayTimeout = 5 * time.Second

// pluginGateway implements api.Gateway by marshaling every call onto
// the editor's single-threaded loop via e.pluginRequests, so a plugin's
// own goroutine never touches window/buffer state directly.
type pluginGateway struct {
	requests chan *pluginCall
}

func newPluginGateway(requests chan *pluginCall) *pluginGateway {
	return &pluginGateway{requests: requests}
}

// PluginGateway returns the api.Gateway implementation bound to this
// editor's event loop, for main to hand to plugin.Manager.SetGateway
// before loading any plugin.
func (e *Editor) PluginGateway() api.Gateway {
	return newPluginGateway(e.pluginRequests)
}

func (g *pluginGateway) call(run func(e *Editor) (interface{}, error)) (interface{}, error) {
	req := &pluginCall{run: run, result: make(chan pluginCallResult, 1)}
	select {
	case g.requests <- req:
	case <-time.After(gatewayTimeout):
		return nil, fmt.Errorf("plugin gateway: editor loop did not accept the request")
	}
	select {
	case res := <-req.result:
		return res.val, res.err
	case <-time.After(gatewayTimeout):
		return nil, fmt.Errorf("plugin gateway: editor loop did not answer the request")
	}
}

func (g *pluginGateway) EditorInfo() api.EditorInfo {
	v, _ := g.call(func(e *Editor) (interface{}, error) {
		win := e.ctx.Windows.Active()
		w, h := e.backend.Size()
		info := api.EditorInfo{Mode: win.Mode.String(), Width: w, Height: h}
		if buf := e.ctx.Buffers[win.BufferID]; buf != nil {
			info.BufferName = buf.Name()
			if p := buf.Path(); p != nil {
				info.BufferPath = *p
			}
		}
		return info, nil
	})
	info, _ := v.(api.EditorInfo)
	return info
}

func (g *pluginGateway) BufferText() (string, error) {
	v, err := g.call(func(e *Editor) (interface{}, error) {
		buf := e.ctx.ActiveBuffer()
		if buf == nil {
			return "", fmt.Errorf("no active buffer")
		}
		return buf.Text(), nil
	})
	s, _ := v.(string)
	return s, err
}

func (g *pluginGateway) InsertText(pos api.Position, text string) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		buf := e.ctx.ActiveBuffer()
		if buf == nil {
			return nil, fmt.Errorf("no active buffer")
		}
		_, err := buf.Insert(pos.Line, pos.Col, text)
		if err == nil {
			e.onPluginEdit(buf)
		}
		return nil, err
	})
	return err
}

func (g *pluginGateway) DeleteText(start, end api.Position) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		buf := e.ctx.ActiveBuffer()
		if buf == nil {
			return nil, fmt.Errorf("no active buffer")
		}
		_, err := buf.Delete(start.Line, start.Col, rangeLength(buf, start, end))
		if err == nil {
			e.onPluginEdit(buf)
		}
		return nil, err
	})
	return err
}

func (g *pluginGateway) ReplaceText(start, end api.Position, text string) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		buf := e.ctx.ActiveBuffer()
		if buf == nil {
			return nil, fmt.Errorf("no active buffer")
		}
		_, err := buf.Replace(start.Line, start.Col, rangeLength(buf, start, end), text)
		if err == nil {
			e.onPluginEdit(buf)
		}
		return nil, err
	})
	return err
}

// rangeLength returns the codepoint count buffer.Delete/Replace expect
// to span from start to end, walking line boundaries the same way
// buffer.Buffer.Delete does internally.
func rangeLength(buf *buffer.Buffer, start, end api.Position) int {
	if end.Line <= start.Line {
		if end.Col <= start.Col {
			return 0
		}
		return end.Col - start.Col
	}
	n := len([]rune(buf.Line(start.Line))) - start.Col + 1
	for l := start.Line + 1; l < end.Line; l++ {
		n += len([]rune(buf.Line(l))) + 1
	}
	n += end.Col
	return n
}

// onPluginEdit notifies the LSP/plugin subsystems the same way a
// keyboard-driven edit would, since a Gateway mutation bypasses
// Editor.dispatch entirely.
func (e *Editor) onPluginEdit(buf *buffer.Buffer) {
	if e.lsp != nil {
		e.lsp.NotifyEdit(buf.ID())
		if syncer, ok := e.lsp.(DocumentSyncer); ok {
			syncer.SyncDocument(buf)
		}
	}
	if e.plugin != nil {
		e.plugin.NotifyPlugin(action.InsertText{Text: ""})
	}
}

func (g *pluginGateway) CursorPosition() (api.Position, error) {
	v, err := g.call(func(e *Editor) (interface{}, error) {
		c := e.ctx.Windows.Active().Cursor
		return api.Position{Line: c.Line, Col: c.Col}, nil
	})
	pos, _ := v.(api.Position)
	return pos, err
}

func (g *pluginGateway) SetCursorPosition(pos api.Position) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		win := e.ctx.Windows.Active()
		buf := e.ctx.Buffers[win.BufferID]
		target := buffer.Position{Line: pos.Line, Col: pos.Col}
		if buf != nil {
			target = buf.Clamp(target)
		}
		win.Cursor = target
		return nil, nil
	})
	return err
}

func (g *pluginGateway) OpenBuffer(path string) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		return nil, e.dispatchAndIgnoreQuit(action.ExCommand{Line: "e " + path})
	})
	return err
}

func (e *Editor) dispatchAndIgnoreQuit(a action.Action) error {
	res := e.dispatch(a)
	if res.IsError() {
		return res.Error
	}
	if res.Status == dispatcher.StatusAsync {
		e.resolveAsync()
	}
	return nil
}

func (g *pluginGateway) DrawText(row, col int, text, fg, bg string) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		id := fmt.Sprintf("draw:%d:%d", row, col)
		e.setOverlay(id, render.Overlay{
			Row: row, Col: col, Lines: []string{text},
			Style: overlayStyle(fg, bg),
		})
		return nil, nil
	})
	return err
}

func (g *pluginGateway) CreateOverlay(spec api.OverlaySpec) (string, error) {
	v, err := g.call(func(e *Editor) (interface{}, error) {
		id := e.nextOverlayID()
		e.setOverlay(id, overlayFromSpec(spec))
		return id, nil
	})
	id, _ := v.(string)
	return id, err
}

func (g *pluginGateway) UpdateOverlay(id string, spec api.OverlaySpec) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		e.setOverlay(id, overlayFromSpec(spec))
		return nil, nil
	})
	return err
}

func (g *pluginGateway) RemoveOverlay(id string) error {
	_, err := g.call(func(e *Editor) (interface{}, error) {
		e.removeOverlay(id)
		return nil, nil
	})
	return err
}

func overlayFromSpec(spec api.OverlaySpec) render.Overlay {
	return render.Overlay{Row: spec.Row, Col: spec.Col, Lines: spec.Lines, Style: overlayStyle(spec.Fg, spec.Bg)}
}

func overlayStyle(fg, bg string) style.Style {
	return style.Default().WithFg(render.ParseColor(fg)).WithBg(render.ParseColor(bg))
}

func (g *pluginGateway) Pick(req api.PickRequest) (int, bool, error) {
	resultCh := make(chan pickResult, 1)
	_, err := g.call(func(e *Editor) (interface{}, error) {
		e.startPicker(req, resultCh)
		return nil, nil
	})
	if err != nil {
		return 0, false, err
	}
	res := <-resultCh
	return res.index, res.ok, nil
}

func (g *pluginGateway) Execute(line string) (string, error) {
	v, err := g.call(func(e *Editor) (interface{}, error) {
		res := e.dispatch(action.ExCommand{Line: line})
		if res.IsError() {
			return "", res.Error
		}
		if res.Status == dispatcher.StatusAsync {
			e.resolveAsync()
			return e.statusMessage, nil
		}
		return res.Message, nil
	})
	s, _ := v.(string)
	return s, err
}
