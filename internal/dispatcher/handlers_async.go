package dispatcher

import "github.com/codersauce/red/internal/action"

// AsyncHandler registers lsp.request and plugin.command actions as
// dispatchable without performing the request itself: the editor event
// loop (package editor) owns the LSP manager and plugin registry, and
// picks these back up from Result.Status == StatusAsync plus the
// action value the caller already holds. Keeping the dispatcher itself
// free of LSP/plugin-runtime knowledge avoids an import cycle (both of
// those subsystems need to dispatch actions back in, e.g. a plugin's
// bound command, or a code action LSP returns).
type AsyncHandler struct{}

func NewAsyncHandler() *AsyncHandler { return &AsyncHandler{} }

func (*AsyncHandler) Namespace() string { return "async" }

func (*AsyncHandler) CanHandle(name string) bool {
	return name == "lsp.request" || name == "plugin.command"
}

func (*AsyncHandler) Handle(a action.Action, ctx *Context) Result {
	switch act := a.(type) {
	case action.LSPRequest:
		ctx.SetData("lspRequest", act)
	case action.PluginCommand:
		ctx.SetData("pluginCommand", act)
	}
	return Async()
}
