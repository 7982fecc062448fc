// Package editor runs the single-threaded cooperative event loop that
// ties together a terminal backend, the per-mode keymap, the
// dispatcher, and the render pipeline, grounded on teacher
// internal/app's Application (app.go's Run/eventLoop select statement,
// eventloop.go's handleBackendEvent/handleKeyEvent dispatch). Unlike
// the teacher's 60fps game-loop ticker, this editor renders once per
// handled input event rather than on a fixed frame clock, since a text
// editor has nothing to animate between keystrokes and render.Diff
// already makes a redundant repaint nearly free.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/clipboard"
	"github.com/codersauce/red/internal/coord"
	"github.com/codersauce/red/internal/dispatcher"
	"github.com/codersauce/red/internal/keymap"
	"github.com/codersauce/red/internal/mode"
	"github.com/codersauce/red/internal/plugin"
	"github.com/codersauce/red/internal/render"
	"github.com/codersauce/red/internal/render/backend"
	"github.com/codersauce/red/internal/window"
)

// ErrAlreadyRunning is returned by Run when the editor's event loop is
// already active.
var ErrAlreadyRunning = errors.New("editor: already running")

// Notifier receives the side effects action.Effects declares so that
// the editor can hand edits off to the LSP and plugin subsystems
// without the dispatcher importing either. LSPBridge and PluginNotifier
// implement it; Editor tolerates a nil Notifier.
type Notifier interface {
	NotifyEdit(bufID buffer.ID)
	NotifyPlugin(a action.Action)
}

// Editor owns the window tree, dispatcher context, and keymap set for
// one running session, and drives them from terminal input.
type Editor struct {
	backend backend.Backend
	keymaps *keymap.Set
	disp    *dispatcher.Dispatcher
	ctx     *dispatcher.Context

	lsp    Notifier
	plugin Notifier

	pendingWin window.ID
	pending    keymap.Sequence
	pasting    bool

	statusMessage string
	lastGrid      *render.Grid

	diags    render.DiagnosticsSource
	overlays map[string]render.Overlay

	activePicker   *pickerState
	pluginRequests chan *pluginCall
	pluginMgr      *plugin.Manager

	done    chan struct{}
	running atomic.Bool
}

// New constructs an Editor with a single buffer seeded from content,
// sized to width×height, using fileIO for `:w`/`:e`.
func New(be backend.Backend, fileIO dispatcher.FileIO, content string, width, height int) *Editor {
	buf := buffer.NewFromString(content)
	bufs := map[buffer.ID]*buffer.Buffer{buf.ID(): buf}
	wt := window.New(buf.ID(), width, height)
	ctx := dispatcher.NewContext(wt, bufs, clipboard.New())
	return &Editor{
		backend:        be,
		keymaps:        keymap.Default(),
		disp:           dispatcher.New(fileIO),
		ctx:            ctx,
		pluginRequests: make(chan *pluginCall, 16),
		done:           make(chan struct{}),
	}
}

// SetNotifiers wires the LSP and plugin subsystems in; either may be nil.
func (e *Editor) SetNotifiers(lsp, plugin Notifier) {
	e.lsp = lsp
	e.plugin = plugin
}

// SetPluginManager wires the plugin manager in for timer dispatch once
// main has loaded and activated plugins. The manager's Services/Gateway
// wiring happens independently via plugin.Manager.SetGateway.
func (e *Editor) SetPluginManager(mgr *plugin.Manager) {
	e.pluginMgr = mgr
}

// Context exposes the dispatcher context for callers that need to
// inspect editor state directly (tests, a future plugin host).
func (e *Editor) Context() *dispatcher.Context { return e.ctx }

// Stop signals the running event loop to exit after its current
// iteration. Safe to call from another goroutine.
func (e *Editor) Stop() {
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// Run initializes the backend and blocks until the event loop exits,
// via Stop, a `:q`-family ex command, or a backend error.
func (e *Editor) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)
	defer e.Stop()

	if err := e.backend.Init(); err != nil {
		return fmt.Errorf("editor: backend init: %w", err)
	}
	defer e.backend.Close()

	w, h := e.backend.Size()
	e.ctx.Windows.Relayout(w, h)
	e.render()

	events := e.pollEvents()

	chordTimer := time.NewTimer(keymap.ChordTimeout)
	stopTimer(chordTimer)
	defer chordTimer.Stop()

	var timers <-chan plugin.FiredTimer
	if e.pluginMgr != nil {
		timers = e.pluginMgr.TimerFired()
	}

	for {
		select {
		case <-e.done:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			quit, err := e.handleEvent(ev)
			if err != nil {
				e.statusMessage = err.Error()
			}
			if len(e.pending) > 0 {
				chordTimer.Reset(keymap.ChordTimeout)
			} else {
				stopTimer(chordTimer)
			}
			e.render()
			if quit {
				return nil
			}
		case <-chordTimer.C:
			e.resolveChordTimeout()
			e.render()
		case req := <-e.pluginRequests:
			val, err := req.run(e)
			req.result <- pluginCallResult{val: val, err: err}
			e.render()
		case ft, ok := <-timers:
			if !ok {
				timers = nil
				continue
			}
			e.pluginMgr.DispatchTimer(ft)
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// pollEvents starts a goroutine translating blocking backend.PollEvent
// calls into a channel the select loop can multiplex against Stop and
// the chord timer, mirroring teacher eventloop.go's startInputPolling.
func (e *Editor) pollEvents() <-chan backend.Event {
	out := make(chan backend.Event, 64)
	go func() {
		defer close(out)
		for {
			// PollEvent blocks; Editor.Run's backend.Close() on exit is
			// what unblocks it, same as teacher eventloop.go's note on
			// startInputPolling.
			ev := e.backend.PollEvent()
			select {
			case out <- ev:
			case <-e.done:
				return
			}
		}
	}()
	return out
}

func (e *Editor) handleEvent(ev backend.Event) (quit bool, err error) {
	switch ev.Type {
	case backend.EventResize:
		e.ctx.Windows.Relayout(ev.Width, ev.Height)
		if resizer, ok := e.plugin.(interface{ NotifyResize(int, int) }); ok {
			resizer.NotifyResize(ev.Width, ev.Height)
		}
		return false, nil
	case backend.EventKey:
		return e.handleKey(ev.Key)
	case backend.EventPaste:
		e.pasting = ev.PasteStart
		return false, nil
	default:
		return false, nil
	}
}

func (e *Editor) handleKey(k keymap.Key) (bool, error) {
	if e.activePicker != nil {
		e.handlePickerKey(k)
		return false, nil
	}
	win := e.ctx.Windows.Active()
	if e.pasting {
		e.dispatch(action.InsertText{Text: string(k.Rune)})
		return false, nil
	}
	if win.ID() != e.pendingWin {
		e.pending = nil
		e.pendingWin = win.ID()
	}

	reg := e.keymaps.Mode(win.Mode.String())
	result, act := reg.Lookup(e.pending, k)
	switch result {
	case keymap.Matched:
		e.pending = nil
		win.PendingChord = nil
		return e.dispatchAndCheckQuit(act)
	case keymap.Pending:
		e.pending = append(e.pending, k)
		win.PendingChord = append(win.PendingChord, k.String())
		return false, nil
	default: // NoMatch
		e.pending = nil
		win.PendingChord = nil
		return e.fallback(win, k)
	}
}

// resolveChordTimeout abandons a pending chord once ChordTimeout has
// elapsed with no further key, falling back the first key of the
// sequence the way a NoMatch would have.
func (e *Editor) resolveChordTimeout() {
	if len(e.pending) == 0 {
		return
	}
	win := e.ctx.Windows.Active()
	first := e.pending[0]
	e.pending = nil
	win.PendingChord = nil
	_, _ = e.fallback(win, first)
}

func (e *Editor) fallback(win *window.Window, k keymap.Key) (bool, error) {
	if win.Mode == mode.Command || win.Mode == mode.Search {
		switch k.Name {
		case "Enter":
			return e.commitLine(win)
		case "Backspace":
			win.CommandLine = trimLastRune(win.CommandLine)
			return false, nil
		}
	}

	res := mode.HandlerFor(win.Mode).HandleUnmapped(toModeKey(k))
	if res.Action != nil {
		return e.dispatchAndCheckQuit(res.Action)
	}
	if res.Handled && (win.Mode == mode.Command || win.Mode == mode.Search) {
		win.CommandLine += string(k.Rune)
	}
	return false, nil
}

func (e *Editor) commitLine(win *window.Window) (bool, error) {
	line := win.CommandLine
	win.CommandLine = ""
	searching := win.Mode == mode.Search
	win.Mode = mode.Normal
	if searching {
		e.runSearch(line)
		return false, nil
	}
	if line == "" {
		return false, nil
	}
	return e.dispatchAndCheckQuit(action.ExCommand{Line: line})
}

// runSearch moves the active window's cursor to the first occurrence of
// pattern after the cursor, wrapping to the buffer start if
// nothing is found past it. Empty matches and regex search are out of
// scope; this is a plain substring search.
func (e *Editor) runSearch(pattern string) {
	if pattern == "" {
		return
	}
	win := e.ctx.Windows.Active()
	buf := e.ctx.Buffers[win.BufferID]
	if buf == nil {
		return
	}
	n := buf.LineCount()
	for offset := 0; offset <= n; offset++ {
		line := (win.Cursor.Line + offset) % n
		text := buf.Line(line)
		start := 0
		if offset == 0 {
			start = coord.CharToByte(text, win.Cursor.Col+1)
		}
		if start > len(text) {
			continue
		}
		if idx := indexFrom(text, pattern, start); idx >= 0 {
			win.Cursor = buf.Clamp(buffer.Position{Line: line, Col: coord.ByteToChar(text, idx)})
			return
		}
	}
	e.statusMessage = fmt.Sprintf("pattern not found: %s", pattern)
}

func indexFrom(s, sub string, start int) int {
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		return -1
	}
	idx := indexString(s[start:], sub)
	if idx < 0 {
		return -1
	}
	return idx + start
}

func indexString(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func toModeKey(k keymap.Key) mode.Key {
	if k.Name != "" {
		return mode.Key{Name: k.Name, IsBackspc: k.Name == "Backspace"}
	}
	return mode.Key{Rune: k.Rune, HasRune: true}
}

func (e *Editor) dispatchAndCheckQuit(a action.Action) (bool, error) {
	res := e.dispatch(a)
	if res.IsError() {
		return false, res.Error
	}
	if res.Status == dispatcher.StatusAsync {
		e.resolveAsync()
	}
	if res.Message != "" {
		e.statusMessage = res.Message
	}
	if v, ok := e.ctx.GetData("quit"); ok && v == true {
		return true, nil
	}
	return false, nil
}

func (e *Editor) dispatch(a action.Action) dispatcher.Result {
	res := e.disp.Execute(a, e.ctx)
	if res.Status == dispatcher.StatusOK {
		eff := a.SideEffects()
		if buf := e.ctx.ActiveBuffer(); buf != nil {
			if eff.LSPNotify && e.lsp != nil {
				e.lsp.NotifyEdit(buf.ID())
				if syncer, ok := e.lsp.(DocumentSyncer); ok {
					e.syncLSPForAction(syncer, a, buf)
				}
			}
		}
		if eff.PluginBroadcast && e.plugin != nil {
			e.plugin.NotifyPlugin(a)
		}
	}
	return res
}

// syncLSPForAction routes a just-executed mutation to the right
// DocumentSyncer call: a write ex-command saves, an edit ex-command
// that landed on buf opens it, everything else just changed content.
func (e *Editor) syncLSPForAction(syncer DocumentSyncer, a action.Action, buf *buffer.Buffer) {
	if ex, ok := a.(action.ExCommand); ok {
		switch exCommandVerb(ex.Line) {
		case "w", "write", "wq", "x":
			syncer.SaveDocument(buf)
			return
		case "e", "edit":
			syncer.OpenDocument(buf)
			return
		}
	}
	syncer.SyncDocument(buf)
}

func exCommandVerb(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// resolveAsync picks up an action.LSPRequest or action.PluginCommand
// staged by dispatcher.AsyncHandler and resolves it, surfacing the
// result on the status line.
func (e *Editor) resolveAsync() {
	if v, ok := e.ctx.GetData("lspRequest"); ok {
		e.ctx.SetData("lspRequest", nil)
		e.resolveLSPRequest(v)
	}
	if v, ok := e.ctx.GetData("pluginCommand"); ok {
		e.ctx.SetData("pluginCommand", nil)
		e.resolvePluginCommand(v)
	}
}

func (e *Editor) resolveLSPRequest(v interface{}) {
	req, ok := v.(action.LSPRequest)
	if !ok || e.lsp == nil {
		return
	}
	bridge, ok := e.lsp.(*LSPBridge)
	if !ok {
		return
	}
	buf := e.ctx.ActiveBuffer()
	if buf == nil {
		return
	}
	win := e.ctx.Windows.Active()
	msg, err := bridge.Resolve(req, buf, win.Cursor)
	if err != nil {
		e.statusMessage = err.Error()
		return
	}
	e.statusMessage = msg
}

func (e *Editor) resolvePluginCommand(v interface{}) {
	cmd, ok := v.(action.PluginCommand)
	if !ok || e.pluginMgr == nil {
		return
	}
	args := make([]interface{}, len(cmd.Args))
	for i, a := range cmd.Args {
		args[i] = a
	}
	result, err := e.pluginMgr.ExecuteCommand(cmd.Command, args)
	if err != nil {
		e.statusMessage = err.Error()
		return
	}
	if s, ok := result.(string); ok && s != "" {
		e.statusMessage = s
	}
}

// SetDiagnostics wires the LSP diagnostics source Compose draws
// squiggles from; nil is valid and simply disables that layer.
func (e *Editor) SetDiagnostics(diags render.DiagnosticsSource) {
	e.diags = diags
}

func (e *Editor) render() {
	w, h := e.backend.Size()
	grid := render.Compose(e.ctx.Windows, render.MapBufferSource(e.ctx.Buffers), e.diags, e, w, h)
	ops := render.Diff(e.lastGrid, grid)
	e.backend.Apply(ops)
	row, col := render.CursorScreenPosition(e.ctx.Windows)
	e.backend.ShowCursor(row, col)
	e.lastGrid = grid
}
