package api

import (
	"fmt"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Bridge builds the Lua "api" table passed to one plugin's
// activate(api)/deactivate(api) and backs every function on it.
// Exactly one Bridge exists per Host, for the Host's lifetime; Reload
// discards it along with the rest of the plugin's Lua state.
type Bridge struct {
	host HostView
	gw   Gateway
	svc  Services

	L          *lua.LState
	handlerTbl *lua.LTable
	nextID     uint64
}

// New creates a Bridge for one plugin. gw may be nil (editor-state
// calls then fail with "no editor gateway"), matching a headless test
// harness that only exercises command/event/timer/log plumbing.
func New(host HostView, gw Gateway, svc Services) *Bridge {
	return &Bridge{host: host, gw: gw, svc: svc}
}

// Table builds the api table for L. Call once per Host.load(), after
// the Lua state exists and before activate() is invoked.
func (b *Bridge) Table(L *lua.LState) *lua.LTable {
	b.L = L
	b.handlerTbl = L.NewTable()
	L.SetGlobal("_red_api_handlers_"+b.host.Name(), b.handlerTbl)

	tbl := L.NewTable()
	reg := func(name string, fn lua.LGFunction) { L.SetField(tbl, name, L.NewFunction(fn)) }

	reg("addCommand", b.addCommand)
	reg("on", b.on)
	reg("once", b.once)
	reg("off", b.off)
	reg("getEditorInfo", b.getEditorInfo)
	reg("pick", b.pick)
	reg("openBuffer", b.openBuffer)
	reg("drawText", b.drawText)
	reg("createOverlay", b.createOverlay)
	reg("updateOverlay", b.updateOverlay)
	reg("removeOverlay", b.removeOverlay)
	reg("insertText", b.insertText)
	reg("deleteText", b.deleteText)
	reg("replaceText", b.replaceText)
	reg("getCursorPosition", b.getCursorPosition)
	reg("setCursorPosition", b.setCursorPosition)
	reg("getBufferText", b.getBufferText)
	reg("execute", b.execute)
	reg("getCommands", b.getCommands)
	reg("getConfig", b.getConfig)
	reg("log", b.logInfo)
	reg("logDebug", b.logDebug)
	reg("logInfo", b.logInfo)
	reg("logWarn", b.logWarn)
	reg("logError", b.logError)
	reg("setTimeout", b.setTimeout)
	reg("clearTimeout", b.clearTimeout)
	reg("setInterval", b.setInterval)
	reg("clearInterval", b.clearInterval)
	reg("viewLogs", b.viewLogs)

	return tbl
}

func (b *Bridge) storeHandler(fn *lua.LFunction) string {
	id := atomic.AddUint64(&b.nextID, 1)
	key := fmt.Sprintf("%s_%d", b.host.Name(), id)
	b.handlerTbl.RawSetString(key, fn)
	return key
}

func (b *Bridge) dropHandler(key string) {
	b.handlerTbl.RawSetString(key, lua.LNil)
}

// callHandler invokes a handler previously stored by storeHandler. It
// must run on the goroutine owning b.L (the Host's lua.Executor); every
// caller in package plugin routes through Host.RunOnExecutor for this
// reason.
func (b *Bridge) callHandler(key string, args ...lua.LValue) {
	fnVal := b.handlerTbl.RawGetString(key)
	fn, ok := fnVal.(*lua.LFunction)
	if !ok {
		return
	}
	b.L.Push(fn)
	for _, a := range args {
		b.L.Push(a)
	}
	if err := b.L.PCall(len(args), 0, nil); err != nil {
		b.svc.Log(b.host.Name(), "error", "handler error: "+err.Error())
	}
}

// --- commands ---

func (b *Bridge) addCommand(L *lua.LState) int {
	id := L.CheckString(1)
	title := L.CheckString(2)
	fn := L.CheckFunction(3)

	key := b.storeHandler(fn)
	cmdFn := func(args []interface{}) (interface{}, error) {
		luaArgs := make([]lua.LValue, len(args))
		for i, a := range args {
			luaArgs[i] = toLValue(L, a)
		}
		b.callHandler(key, luaArgs...)
		return nil, nil
	}

	if err := b.svc.AddCommand(b.host.Name(), id, title, cmdFn); err != nil {
		b.dropHandler(key)
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	b.host.TrackCommand(id)
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) getCommands(L *lua.LState) int {
	L.Push(toLValue(L, b.svc.ListCommands()))
	return 1
}

func (b *Bridge) execute(L *lua.LState) int {
	line := L.CheckString(1)
	if b.gw == nil {
		L.RaiseError("execute: no editor gateway available")
		return 0
	}
	msg, err := b.gw.Execute(line)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(msg))
	return 1
}

// --- events ---

func (b *Bridge) on(L *lua.LState) int {
	eventType := L.CheckString(1)
	fn := L.CheckFunction(2)
	key := b.storeHandler(fn)

	subID := b.svc.Subscribe(eventType, b.host.Name(), func(data map[string]interface{}) {
		b.callHandler(key, mapToTable(L, data))
	})
	b.host.TrackSubscription(subID)
	L.Push(lua.LString(subID))
	return 1
}

func (b *Bridge) once(L *lua.LState) int {
	eventType := L.CheckString(1)
	fn := L.CheckFunction(2)
	key := b.storeHandler(fn)

	var subID string
	subID = b.svc.Subscribe(eventType, b.host.Name(), func(data map[string]interface{}) {
		b.callHandler(key, mapToTable(L, data))
		b.dropHandler(key)
		b.svc.Unsubscribe(subID)
	})
	b.host.TrackSubscription(subID)
	L.Push(lua.LString(subID))
	return 1
}

func (b *Bridge) off(L *lua.LState) int {
	subID := L.CheckString(1)
	b.svc.Unsubscribe(subID)
	L.Push(lua.LTrue)
	return 1
}

// --- editor info / execution ---

func (b *Bridge) getEditorInfo(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("getEditorInfo: no editor gateway available")
		return 0
	}
	info := b.gw.EditorInfo()
	L.Push(toLValue(L, map[string]interface{}{
		"version":    info.Version,
		"mode":       info.Mode,
		"bufferPath": info.BufferPath,
		"bufferName": info.BufferName,
		"width":      info.Width,
		"height":     info.Height,
	}))
	return 1
}

func (b *Bridge) pick(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("pick: no editor gateway available")
		return 0
	}
	title := L.CheckString(1)
	itemsTbl := L.CheckTable(2)

	var items []PickItem
	itemsTbl.ForEach(func(_, v lua.LValue) {
		switch val := v.(type) {
		case lua.LString:
			items = append(items, PickItem{Label: string(val), Value: string(val)})
		case *lua.LTable:
			items = append(items, PickItem{Label: stringField(val, "label"), Value: stringField(val, "value")})
		}
	})

	idx, ok, err := b.gw.Pick(PickRequest{Title: title, Items: items})
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(idx + 1))
	return 1
}

func (b *Bridge) openBuffer(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("openBuffer: no editor gateway available")
		return 0
	}
	path := L.CheckString(1)
	if err := b.gw.OpenBuffer(path); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// --- drawing ---

func (b *Bridge) drawText(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("drawText: no editor gateway available")
		return 0
	}
	row := L.CheckInt(1)
	col := L.CheckInt(2)
	text := L.CheckString(3)
	fg := L.OptString(4, "")
	bg := L.OptString(5, "")
	if err := b.gw.DrawText(row, col, text, fg, bg); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func overlaySpecFromTable(tbl *lua.LTable) OverlaySpec {
	return OverlaySpec{
		Row:   intField(tbl, "row", 0),
		Col:   intField(tbl, "col", 0),
		Lines: stringSliceField(tbl, "lines"),
		Fg:    stringField(tbl, "fg"),
		Bg:    stringField(tbl, "bg"),
	}
}

func (b *Bridge) createOverlay(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("createOverlay: no editor gateway available")
		return 0
	}
	spec := overlaySpecFromTable(L.CheckTable(1))
	id, err := b.gw.CreateOverlay(spec)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(id))
	return 1
}

func (b *Bridge) updateOverlay(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("updateOverlay: no editor gateway available")
		return 0
	}
	id := L.CheckString(1)
	spec := overlaySpecFromTable(L.CheckTable(2))
	if err := b.gw.UpdateOverlay(id, spec); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) removeOverlay(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("removeOverlay: no editor gateway available")
		return 0
	}
	id := L.CheckString(1)
	if err := b.gw.RemoveOverlay(id); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// --- buffer / cursor ---

func (b *Bridge) insertText(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("insertText: no editor gateway available")
		return 0
	}
	line, col, text := L.CheckInt(1), L.CheckInt(2), L.CheckString(3)
	if err := b.gw.InsertText(Position{Line: line, Col: col}, text); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) deleteText(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("deleteText: no editor gateway available")
		return 0
	}
	startLine, startCol := L.CheckInt(1), L.CheckInt(2)
	endLine, endCol := L.CheckInt(3), L.CheckInt(4)
	err := b.gw.DeleteText(Position{Line: startLine, Col: startCol}, Position{Line: endLine, Col: endCol})
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) replaceText(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("replaceText: no editor gateway available")
		return 0
	}
	startLine, startCol := L.CheckInt(1), L.CheckInt(2)
	endLine, endCol := L.CheckInt(3), L.CheckInt(4)
	text := L.CheckString(5)
	err := b.gw.ReplaceText(Position{Line: startLine, Col: startCol}, Position{Line: endLine, Col: endCol}, text)
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) getCursorPosition(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("getCursorPosition: no editor gateway available")
		return 0
	}
	pos, err := b.gw.CursorPosition()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(pos.Line))
	L.Push(lua.LNumber(pos.Col))
	return 2
}

func (b *Bridge) setCursorPosition(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("setCursorPosition: no editor gateway available")
		return 0
	}
	line, col := L.CheckInt(1), L.CheckInt(2)
	if err := b.gw.SetCursorPosition(Position{Line: line, Col: col}); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (b *Bridge) getBufferText(L *lua.LState) int {
	if b.gw == nil {
		L.RaiseError("getBufferText: no editor gateway available")
		return 0
	}
	text, err := b.gw.BufferText()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(text))
	return 1
}

// --- config ---

func (b *Bridge) getConfig(L *lua.LState) int {
	cfg := b.svc.Config(b.host.Name())
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		key := L.CheckString(1)
		L.Push(toLValue(L, cfg[key]))
		return 1
	}
	L.Push(mapToTable(L, cfg))
	return 1
}

// --- logging ---

func (b *Bridge) logAt(L *lua.LState, level string) int {
	msg := L.CheckString(1)
	b.svc.Log(b.host.Name(), level, msg)
	return 0
}

func (b *Bridge) logDebug(L *lua.LState) int { return b.logAt(L, "debug") }
func (b *Bridge) logInfo(L *lua.LState) int  { return b.logAt(L, "info") }
func (b *Bridge) logWarn(L *lua.LState) int  { return b.logAt(L, "warn") }
func (b *Bridge) logError(L *lua.LState) int { return b.logAt(L, "error") }

func (b *Bridge) viewLogs(L *lua.LState) int {
	n := L.OptInt(1, 50)
	L.Push(toLValue(L, b.svc.RecentLogs(b.host.Name(), n)))
	return 1
}

// --- timers ---

func (b *Bridge) setTimeout(L *lua.LState) int {
	fn := L.CheckFunction(1)
	delayMs := L.CheckInt(2)
	key := b.storeHandler(fn)

	id, err := b.svc.SetTimeout(b.host.Name(), time.Duration(delayMs)*time.Millisecond, func() {
		b.callHandler(key)
		b.dropHandler(key)
	})
	if err != nil {
		b.dropHandler(key)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if err := b.host.TrackTimer(id); err != nil {
		b.svc.ClearTimer(b.host.Name(), id)
		b.dropHandler(key)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (b *Bridge) clearTimeout(L *lua.LState) int {
	id := L.CheckInt(1)
	b.svc.ClearTimer(b.host.Name(), id)
	b.host.ReleaseTimer(id)
	return 0
}

func (b *Bridge) setInterval(L *lua.LState) int {
	fn := L.CheckFunction(1)
	delayMs := L.CheckInt(2)
	key := b.storeHandler(fn)

	id, err := b.svc.SetInterval(b.host.Name(), time.Duration(delayMs)*time.Millisecond, func() {
		b.callHandler(key)
	})
	if err != nil {
		b.dropHandler(key)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if err := b.host.TrackTimer(id); err != nil {
		b.svc.ClearTimer(b.host.Name(), id)
		b.dropHandler(key)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (b *Bridge) clearInterval(L *lua.LState) int {
	id := L.CheckInt(1)
	b.svc.ClearTimer(b.host.Name(), id)
	b.host.ReleaseTimer(id)
	return 0
}
