package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/codersauce/red/internal/plugin/api"
	plua "github.com/codersauce/red/internal/plugin/lua"
	"github.com/codersauce/red/internal/plugin/security"
	glua "github.com/yuin/gopher-lua"
)

// executorQueueSize bounds how many pending Lua calls a Host's
// Executor will buffer; SPEC_FULL.md's resource limits cap concurrent
// plugin work well below this, it exists only to bound memory if a
// plugin's own callbacks schedule faster than Lua can drain them.
const executorQueueSize = 256

// Host manages a single plugin's Lua state, lifecycle, and the
// commands/subscriptions/timers it has registered with the editor,
// grounded on teacher's internal/plugin/host.go.
type Host struct {
	mu sync.RWMutex

	name     string
	manifest *Manifest

	state  *plua.State
	bridge *plua.Bridge

	// gateway and services back the api table handed to
	// activate()/deactivate(); set once by Manager before Load and
	// never touched by Host itself. gateway may be nil in a headless
	// harness (tests), in which case the editor-state functions on the
	// api table raise a Lua error instead of panicking.
	gateway  api.Gateway
	services api.Services

	// executor serializes every Lua touch for this plugin onto one
	// goroutine (SPEC_FULL.md §5's concurrency model), started in load
	// and stopped in unload/Reload. callSetup/callActivate/
	// callDeactivate/Call all route through it rather than touching
	// state directly, since once activate() registers commands/events/
	// timers, the editor and the plugin's own timer callbacks can both
	// reach into this host from goroutines other than Load's caller.
	executor    *plua.Executor
	execCancel  context.CancelFunc
	apiBridge   *api.Bridge

	permissions *security.PermissionChecker
	resources   *security.ResourceMonitor

	pluginState State
	err         error

	config map[string]interface{}

	commands      []string
	subscriptions []string
	timers        []int

	memoryLimit      int64
	executionTimeout time.Duration

	// Unregister hooks, wired by Manager so Reload's cleanup phase can
	// actually drop registry state rather than just forgetting the IDs.
	UnregisterCommand      func(id string)
	UnregisterSubscription func(id string)
	CancelTimer            func(id int)
}

// HostOption configures a Host.
type HostOption func(*Host)

func WithHostMemoryLimit(bytes int64) HostOption {
	return func(h *Host) { h.memoryLimit = bytes }
}

func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) { h.executionTimeout = d }
}

func WithHostConfig(config map[string]interface{}) HostOption {
	return func(h *Host) { h.config = config }
}

func WithHostResourceLimits(limits security.ResourceLimits) HostOption {
	return func(h *Host) { h.resources = security.NewResourceMonitor(limits) }
}

// WithHostGateway wires the editor-state surface exposed to Lua as
// api.openBuffer/getCursorPosition/insertText/pick/etc. Manager passes
// its own gateway (set via Manager.SetGateway) to every Host it creates.
func WithHostGateway(gw api.Gateway) HostOption {
	return func(h *Host) { h.gateway = gw }
}

// WithHostServices wires the command/event/timer/log registry exposed
// to Lua as api.addCommand/on/setTimeout/log/etc. Manager passes
// itself, since Manager implements api.Services.
func WithHostServices(svc api.Services) HostOption {
	return func(h *Host) { h.services = svc }
}

// NewHost creates a new plugin host for the given manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		name:             manifest.Name,
		manifest:         manifest,
		pluginState:      StateUnloaded,
		config:           make(map[string]interface{}),
		memoryLimit:      plua.DefaultMemoryLimit,
		executionTimeout: plua.DefaultExecutionTimeout,
		permissions:      security.NewPermissionChecker(manifest.Name),
	}

	for _, opt := range opts {
		opt(h)
	}
	if h.resources == nil {
		h.resources = security.NewResourceMonitor(security.DefaultResourceLimits())
	}

	h.permissions.GrantAll(manifest.Capabilities)

	for key, prop := range manifest.ConfigSchema {
		if prop.Default != nil {
			h.config[key] = prop.Default
		}
	}

	return h, nil
}

func (h *Host) Name() string         { return h.name }
func (h *Host) Manifest() *Manifest  { return h.manifest }

func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Permissions returns the host's capability/path/host checker.
func (h *Host) Permissions() *security.PermissionChecker {
	return h.permissions
}

// Resources returns the host's instruction/memory/timer monitor.
func (h *Host) Resources() *security.ResourceMonitor {
	return h.resources
}

func (h *Host) Config() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	config := make(map[string]interface{}, len(h.config))
	for k, v := range h.config {
		config[k] = v
	}
	return config
}

func (h *Host) SetConfig(key string, value interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.config[key] = value
}

// Load initializes the Lua state and runs the plugin's main file,
// without calling setup/activate.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// load does the work of Load without taking h.mu, for reuse by Reload.
func (h *Host) load() error {
	if h.pluginState != StateUnloaded {
		return ErrAlreadyLoaded
	}

	state, err := plua.NewState(
		plua.WithMemoryLimit(h.memoryLimit),
		plua.WithExecutionTimeout(h.executionTimeout),
	)
	if err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}

	h.state = state
	h.bridge = plua.NewBridge(state.LuaState())
	h.apiBridge = api.New(h, h.gateway, h.services)

	execCtx, cancel := context.WithCancel(context.Background())
	h.execCancel = cancel
	h.executor = plua.NewExecutor(state.LuaState(), executorQueueSize)
	go h.executor.Run(execCtx)

	for _, cap := range h.manifest.Capabilities {
		h.state.Sandbox().Grant(cap)
	}

	apiTable := h.apiBridge.Table(state.LuaState())
	state.SetGlobal("api", apiTable)

	if err := h.state.DoFile(h.manifest.MainPath()); err != nil {
		h.execCancel()
		h.executor = nil
		h.state.Close()
		h.state = nil
		h.pluginState = StateError
		h.err = fmt.Errorf("failed to load plugin: %w", err)
		return h.err
	}

	h.pluginState = StateLoaded
	h.err = nil
	return nil
}

// runOnExecutor serializes fn onto the host's Lua-owning goroutine. If
// the executor hasn't been started (state not loaded), fn runs inline.
func (h *Host) runOnExecutor(fn func() error) error {
	if h.executor == nil {
		return fn()
	}
	ctx := context.Background()
	if h.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.executionTimeout)
		defer cancel()
	}
	return h.executor.Execute(ctx, func(*glua.LState) error { return fn() })
}

// RunAsync queues fn to run on the host's Lua-owning goroutine without
// waiting for it to complete, used for event dispatch and fired timer
// callbacks so the caller (Manager, TimerWheel) never blocks on
// another plugin's Lua code.
func (h *Host) RunAsync(fn func()) error {
	h.mu.RLock()
	executor := h.executor
	h.mu.RUnlock()
	if executor == nil {
		return ErrNotLoaded
	}
	return executor.ExecuteAsync(func(*glua.LState) error { fn(); return nil })
}

// Activate calls the plugin's setup(config) then activate().
func (h *Host) Activate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activate()
}

func (h *Host) activate() error {
	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}

	h.pluginState = StateActivating

	if err := h.callSetup(); err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}
	if err := h.callActivate(); err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}

	h.pluginState = StateActive
	h.err = nil
	return nil
}

func (h *Host) callSetup() error {
	return h.runOnExecutor(func() error {
		L := h.state.LuaState()
		setup := L.GetGlobal("setup")
		if setup == glua.LNil || setup.Type() != glua.LTFunction {
			return nil
		}
		_, err := h.state.Call("setup", h.bridge.ToLuaValue(h.config))
		return err
	})
}

// callActivate invokes the plugin's activate(api) with the live op
// bridge SPEC_FULL.md §4.8/§6 require: addCommand, on/once/off,
// getEditorInfo, pick, openBuffer, drawText, createOverlay/
// updateOverlay/removeOverlay, insertText/deleteText/replaceText,
// getCursorPosition/setCursorPosition, getBufferText, execute,
// getCommands, getConfig, the log family, the timer family, viewLogs.
func (h *Host) callActivate() error {
	return h.runOnExecutor(func() error {
		L := h.state.LuaState()
		activate := L.GetGlobal("activate")
		if activate == glua.LNil || activate.Type() != glua.LTFunction {
			return nil
		}
		_, err := h.state.Call("activate", L.GetGlobal("api"))
		return err
	})
}

func (h *Host) callDeactivate() error {
	return h.runOnExecutor(func() error {
		L := h.state.LuaState()
		deactivate := L.GetGlobal("deactivate")
		if deactivate == glua.LNil || deactivate.Type() != glua.LTFunction {
			return nil
		}
		_, err := h.state.Call("deactivate", L.GetGlobal("api"))
		return err
	})
}

// Deactivate calls the plugin's deactivate() and returns to StateLoaded.
func (h *Host) Deactivate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deactivate()
}

func (h *Host) deactivate() error {
	if h.pluginState != StateActive {
		return nil
	}
	h.pluginState = StateDeactivating
	if err := h.callDeactivate(); err != nil {
		h.err = err
	}
	h.pluginState = StateLoaded
	return nil
}

// releaseRegistrations runs the unregister hooks for every command,
// subscription, and timer this host has tracked, then clears the
// lists. Used by both Unload and Reload's cleanup phase.
func (h *Host) releaseRegistrations() {
	if h.UnregisterCommand != nil {
		for _, id := range h.commands {
			h.UnregisterCommand(id)
		}
	}
	if h.UnregisterSubscription != nil {
		for _, id := range h.subscriptions {
			h.UnregisterSubscription(id)
		}
	}
	if h.CancelTimer != nil {
		for _, id := range h.timers {
			h.CancelTimer(id)
		}
	}
	for range h.timers {
		h.resources.ReleaseTimer()
	}
	h.commands = nil
	h.subscriptions = nil
	h.timers = nil
}

// Unload deactivates (if active), closes the Lua state, and releases
// every resource the plugin was tracking.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unload()
}

func (h *Host) unload() error {
	if h.pluginState == StateUnloaded {
		return nil
	}

	if h.pluginState == StateActive {
		h.pluginState = StateDeactivating
		_ = h.callDeactivate()
	}

	h.stopExecutor()

	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
	h.bridge = nil
	h.apiBridge = nil
	h.pluginState = StateUnloaded
	h.err = nil

	h.releaseRegistrations()
	return nil
}

// stopExecutor cancels the host's Lua goroutine. Safe to call when no
// executor is running.
func (h *Host) stopExecutor() {
	if h.executor == nil {
		return
	}
	h.executor.Close()
	if h.execCancel != nil {
		h.execCancel()
	}
	h.executor = nil
	h.execCancel = nil
}

// Reload implements SPEC_FULL.md's five-step reload sequence: await
// deactivation, drop every registry-tracked subscription/timer/command,
// reload the script source under a fresh Lua identity, then reactivate
// if it was previously active. A failure once cleanup has started
// leaves the plugin in StateDisabled rather than silently reverting to
// its pre-reload registrations, since those registrations are already gone.
func (h *Host) Reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasActive := h.pluginState == StateActive

	// 1. await deactivate
	if err := h.deactivate(); err != nil {
		h.pluginState = StateDisabled
		h.err = err
		return err
	}

	// 2. remove registry-tracked subscriptions/timers, drop commands
	h.releaseRegistrations()

	h.stopExecutor()
	if h.state != nil {
		h.state.Close()
		h.state = nil
		h.bridge = nil
		h.apiBridge = nil
	}
	h.pluginState = StateUnloaded

	// 3-4. reload script source under a fresh *glua.LState
	if err := h.load(); err != nil {
		h.pluginState = StateDisabled
		return err
	}

	// 5. reactivate if it was active before
	if wasActive {
		if err := h.activate(); err != nil {
			h.pluginState = StateDisabled
			return err
		}
	}

	return nil
}

// Call invokes a global Lua function with Go arguments, returning Go
// values. Runs on the host's executor goroutine, so it is safe to call
// concurrently with event/timer/command dispatch into the same plugin.
func (h *Host) Call(fn string, args ...interface{}) ([]interface{}, error) {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	if state == nil {
		return nil, ErrNotLoaded
	}

	var goResults []interface{}
	err := h.runOnExecutor(func() error {
		luaArgs := make([]glua.LValue, len(args))
		for i, arg := range args {
			luaArgs[i] = h.bridge.ToLuaValue(arg)
		}

		results, err := h.state.Call(fn, luaArgs...)
		if err != nil {
			return err
		}

		goResults = make([]interface{}, len(results))
		for i, result := range results {
			goResults[i] = h.bridge.ToGoValue(result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goResults, nil
}

func (h *Host) HasFunction(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return false
	}
	v := h.state.GetGlobal(name)
	return v != nil && v.Type() == glua.LTFunction
}

func (h *Host) GetGlobal(name string) interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return nil
	}
	return h.bridge.ToGoValue(h.state.GetGlobal(name))
}

func (h *Host) SetGlobal(name string, value interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return
	}
	h.state.SetGlobal(name, h.bridge.ToLuaValue(value))
}

func (h *Host) RegisterFunc(name string, fn glua.LGFunction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return
	}
	h.state.RegisterFunc(name, fn)
}

func (h *Host) RegisterModule(name string, funcs map[string]glua.LGFunction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return
	}
	h.state.RegisterModule(name, funcs)
}

// LuaState returns the underlying Lua state. Direct access bypasses
// the host's mutex and sandbox; use with caution.
func (h *Host) LuaState() *glua.LState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return nil
	}
	return h.state.LuaState()
}

func (h *Host) Bridge() *plua.Bridge {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bridge
}

// TrackCommand records a command ID registered during this plugin's
// activation, so Reload/Unload can drop it again.
func (h *Host) TrackCommand(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, id)
}

// TrackSubscription records an event subscription ID.
func (h *Host) TrackSubscription(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscriptions = append(h.subscriptions, id)
}

// TrackTimer records a setTimeout/setInterval ID against the
// plugin's timer quota. Returns ErrTimerQuotaFull if the quota is
// already exhausted, in which case the caller must not start the timer.
func (h *Host) TrackTimer(id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.resources.AcquireTimer() {
		return ErrTimerQuotaFull
	}
	h.timers = append(h.timers, id)
	return nil
}

// ReleaseTimer drops a single timer, e.g. when a one-shot fires or the
// plugin calls clearTimeout/clearInterval directly.
func (h *Host) ReleaseTimer(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, t := range h.timers {
		if t == id {
			h.timers = append(h.timers[:i], h.timers[i+1:]...)
			h.resources.ReleaseTimer()
			return
		}
	}
}

func (h *Host) TrackedCommands() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string{}, h.commands...)
}

func (h *Host) TrackedSubscriptions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string{}, h.subscriptions...)
}

func (h *Host) TrackedTimers() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]int{}, h.timers...)
}

// DoString executes Lua code in the plugin's state.
func (h *Host) DoString(code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return ErrNotLoaded
	}
	return h.state.DoString(code)
}

// DoFile executes a Lua file in the plugin's state, resolving a
// relative path against the plugin's own directory.
func (h *Host) DoFile(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return ErrNotLoaded
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.manifest.Path(), path)
	}
	return h.state.DoFile(path)
}

// Stats returns runtime statistics for the plugin host.
func (h *Host) Stats() HostStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HostStats{
		Name:          h.name,
		State:         h.pluginState,
		Commands:      len(h.commands),
		Subscriptions: len(h.subscriptions),
		Timers:        len(h.timers),
		HasError:      h.err != nil,
	}
}

// HostStats is a runtime snapshot of one plugin host.
type HostStats struct {
	Name          string
	State         State
	Commands      int
	Subscriptions int
	Timers        int
	HasError      bool
}
