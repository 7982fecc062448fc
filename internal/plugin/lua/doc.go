// Package lua provides the Lua runtime integration for the plugin system.
//
// This package wraps gopher-lua to provide:
//   - A sandboxed Lua state with dangerous stdlib functions removed
//   - A Go-Lua value conversion bridge
//   - Capability-gated module injection (io, os), sharing
//     plugin/security.Capability with the rest of the plugin host
//   - An instruction counter and limit on Sandbox; nothing in this
//     package increments the counter, so the limit is not enforced
//   - A single-goroutine Executor serializing all LState access, since
//     gopher-lua's LState is not goroutine-safe
//
// # State
//
//	state, err := lua.NewState(
//	    lua.WithMemoryLimit(10 * 1024 * 1024),
//	    lua.WithExecutionTimeout(5 * time.Second),
//	)
//	defer state.Close()
//	state.Sandbox().Grant(security.CapabilityFileRead)
//	state.DoFile("plugin.lua")
//
// # Executor
//
// Plugin hosts that must serve calls from multiple editor goroutines
// wrap a State in an Executor and run it on one dedicated goroutine:
//
//	exec := lua.NewExecutor(state.LuaState(), 64)
//	go exec.Run(ctx)
//	err := exec.Execute(ctx, func(L *glua.LState) error { ... })
package lua
