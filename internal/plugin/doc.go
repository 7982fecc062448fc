// Package plugin provides Red's Lua plugin system.
//
// Plugins extend the editor with Lua scripts that can define commands,
// add keybindings, subscribe to editor events, run timers, and
// integrate with the buffer/cursor/window subsystems.
//
// # Plugin structure
//
// Plugins are either single-file or directory-based:
//
//	~/.config/red/plugins/myplugin.lua
//
//	~/.config/red/plugins/myplugin/
//	├── plugin.json      # manifest (optional but recommended)
//	├── init.lua         # entry point
//	└── lib/
//	    └── helper.lua
//
// # Manifest
//
//	{
//	  "name": "my-plugin",
//	  "version": "1.0.0",
//	  "displayName": "My Plugin",
//	  "main": "init.lua",
//	  "capabilities": ["filesystem.read", "editor.command"],
//	  "commands": [
//	    {"id": "my-plugin.doThing", "title": "Do Thing"}
//	  ]
//	}
//
// # Capabilities
//
// Plugins declare required capabilities in their manifest; see
// plugin/security.Capability for the full set. Host grants each declared
// capability to the plugin's Lua sandbox, which injects a module only for
// filesystem.read and filesystem.write (io) and unsafe (os, debug). The
// other capabilities are validated in the manifest and gate nothing: the
// api table is the same for every plugin.
//
// # Lifecycle
//
//	StateUnloaded -> Load() -> StateLoaded
//	StateLoaded -> Activate() -> StateActive
//	StateActive -> Deactivate() -> StateLoaded
//	StateLoaded -> Unload() -> StateUnloaded
//
// Reload runs deactivate, drops every tracked command/subscription/
// timer, reloads the script under a fresh Lua state, then reactivates.
// A failure after cleanup has started leaves the plugin in
// StateDisabled rather than reverting, since its old registrations are
// already gone.
//
// Host manages one plugin's Lua state and lifecycle; Manager tracks
// every loaded Host and discovers plugins on disk via Loader.
//
// # Security
//
// Plugins run in a sandboxed Lua environment: dofile/loadfile/load are
// removed, require is whitelisted, each call into the plugin's Lua code
// waits at most the execution timeout, and io/os/debug require the
// matching capability. Instruction counts are not enforced: nothing
// increments the sandbox's instruction counter. Timers are bounded by the
// per-plugin timer quota, not by a capability. See plugin/security and
// plugin/lua for the enforcement layers.
//
// # Example plugin
//
//	function setup(config) end
//
//	function activate(api)
//	    api.addCommand("my-plugin.hello", "Hello", function()
//	        api.log("Hello from plugin!")
//	    end)
//	end
//
//	function deactivate() end
package plugin
