// Package api builds the Lua-facing "api" table passed to a plugin's
// activate(api)/deactivate(api), grounded on teacher's
// internal/plugin/api (registry.go's Module/Context split, event.go's
// handler-table GC-guard pattern, and util.go's Lua<->Go conversions).
//
// Unlike the teacher, which registers one Module per concern
// (buf/cursor/mode/event/...) and aggregates them into a require("ks")
// loader, this package builds a single flat api table matching
// SPEC_FULL.md §4.8's named surface directly: addCommand, on/once/off,
// getEditorInfo, pick, openBuffer, drawText,
// createOverlay/updateOverlay/removeOverlay, insertText/deleteText/
// replaceText, getCursorPosition/setCursorPosition, getBufferText,
// execute, getCommands, getConfig, log family, setTimeout/clearTimeout/
// setInterval/clearInterval, viewLogs.
//
// Bridge is built once per plugin Host and talks to two collaborators:
//
//   - Gateway reaches into live editor state (buffer text, cursor,
//     overlays, the picker). Every Gateway call crosses from the
//     plugin's own goroutine onto the editor's single-threaded loop and
//     back; see internal/editor's pluginGateway for the channel that
//     marshals the crossing.
//   - Services is the plugin registry (internal/plugin.Manager):
//     command/event registration, timers, logs, config. These are
//     plain in-memory registries guarded by their own mutex, so Bridge
//     calls them directly without crossing to the editor loop.
//
// pick() is a blocking round trip rather than the coroutine-backed
// promise SPEC_FULL.md §4.8 describes for a single-threaded host
// runtime: because every plugin already runs on its own goroutine
// (lua.Executor), blocking that goroutine until the user chooses
// doesn't stall the editor loop the way it would in a true
// single-threaded runtime, so the simpler direct return was chosen; see
// DESIGN.md.
package api
