package api

import "time"

// Position is a codepoint-addressed buffer location. It mirrors
// buffer.Position without importing package buffer, so that api has no
// dependency on the editor's buffer/window packages and editor has no
// dependency back on plugin/api beyond implementing Gateway.
type Position struct {
	Line int
	Col  int
}

// EditorInfo answers getEditorInfo(): a snapshot of what the active
// window is looking at.
type EditorInfo struct {
	Version    string
	Mode       string
	BufferPath string
	BufferName string
	Width      int
	Height     int
}

// OverlaySpec describes a chrome overlay created by createOverlay or
// replaced wholesale by updateOverlay.
type OverlaySpec struct {
	Row, Col int
	Lines    []string
	Fg, Bg   string
}

// PickItem is one entry offered to pick().
type PickItem struct {
	Label string
	Value string
}

// PickRequest describes a picker prompt.
type PickRequest struct {
	Title string
	Items []PickItem
}

// CommandInfo describes one plugin-contributed command, returned by
// getCommands().
type CommandInfo struct {
	ID     string
	Title  string
	Plugin string
}

// LogEntry is one line recorded by log/logDebug/logInfo/logWarn/
// logError and surfaced again by viewLogs().
type LogEntry struct {
	Plugin  string
	Level   string
	Message string
	Time    time.Time
}

// Gateway is the editor-state surface a plugin's Lua code reaches
// through api.*. A call crosses from the plugin's own goroutine onto
// the editor's single-threaded event loop and back; implementations
// must be safe to call from any goroutine but must do the actual read/
// mutation on the loop's own goroutine (see editor's pluginGateway,
// which does this over a request/reply channel read by Editor.Run's
// select loop).
type Gateway interface {
	EditorInfo() EditorInfo
	BufferText() (string, error)
	InsertText(pos Position, text string) error
	DeleteText(start, end Position) error
	ReplaceText(start, end Position, text string) error
	CursorPosition() (Position, error)
	SetCursorPosition(pos Position) error
	OpenBuffer(path string) error
	DrawText(row, col int, text, fg, bg string) error
	CreateOverlay(spec OverlaySpec) (string, error)
	UpdateOverlay(id string, spec OverlaySpec) error
	RemoveOverlay(id string) error
	// Pick blocks until the user chooses an item or cancels (ok=false).
	Pick(req PickRequest) (index int, ok bool, err error)
	// Execute runs an ex-command line (":w", ":10", a plugin command id
	// prefixed "plugin.") and returns its status message.
	Execute(line string) (string, error)
}

// CommandFunc is a plugin-registered command body. args are the raw
// values the caller passed (empty for a keybinding/palette invocation).
type CommandFunc func(args []interface{}) (interface{}, error)

// EventHandler receives one broadcast editor or plugin event.
type EventHandler func(data map[string]interface{})

// Services is the plugin registry surface (internal/plugin.Manager):
// command/event registration, timers, logs, and config, all plain
// in-memory state guarded by the implementation's own lock, reachable
// directly from any goroutine without crossing to the editor loop.
type Services interface {
	AddCommand(pluginName, id, title string, fn CommandFunc) error
	RemoveCommand(id string)
	ExecuteCommand(id string, args []interface{}) (interface{}, error)
	ListCommands() []CommandInfo

	Subscribe(eventType, pluginName string, handler EventHandler) string
	Unsubscribe(id string)
	Emit(eventType string, data map[string]interface{})

	SetTimeout(pluginName string, delay time.Duration, fn func()) (int, error)
	SetInterval(pluginName string, delay time.Duration, fn func()) (int, error)
	ClearTimer(pluginName string, id int)

	Log(pluginName, level, message string)
	RecentLogs(pluginName string, n int) []LogEntry

	Config(pluginName string) map[string]interface{}
}

// HostView is the slice of *plugin.Host that Bridge needs: its name,
// for namespacing commands/logs/events, and the tracking hooks Reload/
// Unload use to release everything the plugin registered. Expressed as
// an interface (rather than importing package plugin) so plugin can
// import api without a cycle; *plugin.Host satisfies this structurally.
type HostView interface {
	Name() string
	TrackCommand(id string)
	TrackSubscription(id string)
	TrackTimer(id int) error
	ReleaseTimer(id int)
}
