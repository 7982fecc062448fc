// Package security provides the capability, permission, and resource-
// limit primitives the plugin host enforces against one Lua plugin at
// a time, grounded on teacher internal/plugin/security.
//
// Capabilities are permissions a plugin's manifest requests and a
// Host grants via PermissionChecker; granting a parent capability
// (e.g. "editor") implies every dotted child ("editor.buffer").
// PermissionChecker additionally enforces filesystem path and network
// host allow/block lists plus a workspace boundary. ResourceMonitor
// tracks per-plugin instruction count, memory, goroutines, output
// size, and timer count against configurable limits, and rate-limits
// file/network operations with a token-bucket RateLimiter.
package security
