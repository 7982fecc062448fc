package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codersauce/red/internal/plugin/api"
	"github.com/codersauce/red/internal/plugin/security"
)

// Manager owns the lifecycle of every loaded plugin: discovery,
// loading, activation, and event dispatch, grounded on teacher's
// internal/plugin/manager.go. Manager also implements api.Services,
// backing every plugin's addCommand/on/setTimeout/log/getConfig calls
// with the registries wireHost used to only stub out.
type Manager struct {
	mu sync.RWMutex

	loader *Loader

	plugins   map[string]*Host
	loadOrder []string

	eventHandlers []EventHandler

	config  ManagerConfig
	gateway api.Gateway
	reg     *registry
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	PluginPaths  []string
	AutoActivate bool
	Limits       security.ResourceLimits
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PluginPaths:  DefaultPluginPaths(),
		AutoActivate: true,
		Limits:       security.DefaultResourceLimits(),
	}
}

// EventHandler handles plugin manager events. Handlers must be
// non-blocking and must not call back into the Manager; panics are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager lifecycle event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

type ManagerEventType int

const (
	EventPluginLoaded ManagerEventType = iota
	EventPluginUnloaded
	EventPluginActivated
	EventPluginDeactivated
	EventPluginReloaded
	EventPluginDisabled
	EventPluginError
)

func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginActivated:
		return "activated"
	case EventPluginDeactivated:
		return "deactivated"
	case EventPluginReloaded:
		return "reloaded"
	case EventPluginDisabled:
		return "disabled"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a new plugin manager.
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		loader:    NewLoader(WithPaths(config.PluginPaths...)),
		plugins:   make(map[string]*Host),
		loadOrder: make([]string, 0),
		config:    config,
		reg:       newRegistry(),
	}
}

// SetGateway wires the editor-state surface every loaded plugin's Lua
// code reaches through api.getCursorPosition/insertText/pick/etc.
// Mirrors editor.Editor.SetNotifiers: construct the Manager, build the
// gateway against the live editor, then wire it in before LoadAll.
func (m *Manager) SetGateway(gw api.Gateway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateway = gw
}

// TimerFired is read by the editor's select loop as its "expired
// timer" source (SPEC_FULL.md §4.6/§5's fourth multiplexed event).
func (m *Manager) TimerFired() <-chan FiredTimer {
	return m.reg.timers.Fired()
}

// DispatchTimer runs a fired timer's callback on its owning plugin's
// executor goroutine. Called by the editor loop after reading a value
// off TimerFired().
func (m *Manager) DispatchTimer(ft FiredTimer) {
	if ft.Fn == nil {
		return
	}
	host, exists := m.Get(ft.Plugin)
	if !exists {
		return
	}
	_ = host.RunAsync(ft.Fn)
}

// Close stops the shared timer wheel. Call once, after UnloadAll.
func (m *Manager) Close() {
	m.reg.timers.Close()
}

// Discover searches for available plugins without loading them.
func (m *Manager) Discover() ([]*PluginInfo, error) {
	return m.loader.Discover()
}

// Load loads a plugin by name. If already loaded, returns ErrAlreadyLoaded.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	m.mu.Lock()
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	m.mu.Unlock()

	info, err := m.loader.FindPlugin(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	gw := m.gateway
	m.mu.RUnlock()

	host, err := NewHost(info.Manifest,
		WithHostResourceLimits(m.config.Limits),
		WithHostGateway(gw),
		WithHostServices(m),
	)
	if err != nil {
		return nil, err
	}
	m.wireHost(host)

	if err := host.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load plugin %q: %w", name, err)
	}

	m.mu.Lock()
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		host.Unload(ctx)
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	m.plugins[name] = host
	m.loadOrder = append(m.loadOrder, name)
	m.mu.Unlock()

	m.emitEvent(ManagerEvent{Type: EventPluginLoaded, Plugin: name})

	if m.config.AutoActivate {
		if err := host.Activate(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventPluginActivated, Plugin: name})
		}
	}

	return host, nil
}

// wireHost connects a Host's registry-cleanup hooks to the Manager's
// registries, so Reload/Unload's cleanup phase actually drops a
// plugin's commands/subscriptions/timers rather than only forgetting
// the tracked IDs.
func (m *Manager) wireHost(host *Host) {
	host.UnregisterCommand = m.reg.RemoveCommand
	host.UnregisterSubscription = m.reg.Unsubscribe
	host.CancelTimer = func(id int) { m.reg.ClearTimer(host.Name(), id) }
}

// LoadAll loads every discovered plugin, collecting errors rather than stopping at the first.
func (m *Manager) LoadAll(ctx context.Context) error {
	plugins, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var loadErrors []error
	for _, info := range plugins {
		if _, err := m.Load(ctx, info.Name); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Unload unloads a plugin by name.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	host, exists := m.plugins[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	delete(m.plugins, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	if host.State() == StateActive {
		if err := host.Deactivate(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventPluginDeactivated, Plugin: name})
		}
	}

	if err := host.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload plugin %q: %w", name, err)
	}

	m.emitEvent(ManagerEvent{Type: EventPluginUnloaded, Plugin: name})
	return nil
}

// UnloadAll unloads every plugin in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	for i, name := range m.loadOrder {
		names[len(m.loadOrder)-1-i] = name
	}
	m.mu.RUnlock()

	var unloadErrors []error
	for _, name := range names {
		if err := m.Unload(ctx, name); err != nil {
			unloadErrors = append(unloadErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(unloadErrors) > 0 {
		return fmt.Errorf("failed to unload %d plugins: %w", len(unloadErrors), errors.Join(unloadErrors...))
	}
	return nil
}

func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	host, exists := m.plugins[name]
	return host, exists
}

func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if host, exists := m.plugins[name]; exists {
			result = append(result, host)
		}
	}
	return result
}

func (m *Manager) ListActive() []*Host {
	return m.ListByState(StateActive)
}

func (m *Manager) ListByState(state State) []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Host, 0)
	for _, name := range m.loadOrder {
		if host, exists := m.plugins[name]; exists && host.State() == state {
			result = append(result, host)
		}
	}
	return result
}

// Activate activates a loaded plugin.
func (m *Manager) Activate(ctx context.Context, name string) error {
	m.mu.RLock()
	host, exists := m.plugins[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	if err := host.Activate(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return err
	}

	m.emitEvent(ManagerEvent{Type: EventPluginActivated, Plugin: name})
	return nil
}

func (m *Manager) ActivateAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	copy(names, m.loadOrder)
	m.mu.RUnlock()

	var activateErrors []error
	for _, name := range names {
		if err := m.Activate(ctx, name); err != nil {
			activateErrors = append(activateErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(activateErrors) > 0 {
		return fmt.Errorf("failed to activate %d plugins: %w", len(activateErrors), errors.Join(activateErrors...))
	}
	return nil
}

// Deactivate deactivates an active plugin.
func (m *Manager) Deactivate(ctx context.Context, name string) error {
	m.mu.RLock()
	host, exists := m.plugins[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	if err := host.Deactivate(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return err
	}

	m.emitEvent(ManagerEvent{Type: EventPluginDeactivated, Plugin: name})
	return nil
}

func (m *Manager) DeactivateAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	for i, name := range m.loadOrder {
		names[len(m.loadOrder)-1-i] = name
	}
	m.mu.RUnlock()

	var deactivateErrors []error
	for _, name := range names {
		if err := m.Deactivate(ctx, name); err != nil {
			deactivateErrors = append(deactivateErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(deactivateErrors) > 0 {
		return fmt.Errorf("failed to deactivate %d plugins: %w", len(deactivateErrors), errors.Join(deactivateErrors...))
	}
	return nil
}

// Reload reloads a plugin in place via Host.Reload, which implements
// SPEC_FULL.md's five-step sequence. A plugin left in StateDisabled by
// a failed reload stays registered with the Manager (unlike teacher's
// Reload, which fully unloaded and reloaded the plugin) so that
// ListByState(StateDisabled)/Get still surface it for the next explicit reload attempt.
func (m *Manager) Reload(ctx context.Context, name string) error {
	m.mu.RLock()
	host, exists := m.plugins[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	if err := host.Reload(ctx); err != nil {
		if host.State() == StateDisabled {
			m.emitEvent(ManagerEvent{Type: EventPluginDisabled, Plugin: name, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		}
		return fmt.Errorf("reload failed for plugin %q: %w", name, err)
	}

	m.emitEvent(ManagerEvent{Type: EventPluginReloaded, Plugin: name})
	return nil
}

// SubscribeManagerEvents adds a handler for the Manager's own lifecycle
// events (load/activate/error/reload) and returns an unsubscribe
// function. Distinct from the api.Services.Subscribe below, which
// subscribes a plugin to editor/plugin event broadcasts.
func (m *Manager) SubscribeManagerEvents(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

func (m *Manager) CountActive() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, host := range m.plugins {
		if host.State() == StateActive {
			count++
		}
	}
	return count
}

func (m *Manager) HasErrors() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, host := range m.plugins {
		if host.State() == StateError {
			return true
		}
	}
	return false
}

func (m *Manager) Errors() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	errs := make(map[string]error)
	for name, host := range m.plugins {
		if (host.State() == StateError || host.State() == StateDisabled) && host.Error() != nil {
			errs[name] = host.Error()
		}
	}
	return errs
}

func (m *Manager) Loader() *Loader { return m.loader }

func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() { recover() }()
			handler(event)
		}()
	}
}

// --- api.Services ---
//
// Every method below backs one Lua-facing function on the api table
// (internal/plugin/api.Bridge). AddCommand/RemoveCommand/
// ExecuteCommand/ListCommands and Subscribe/Unsubscribe/SetTimeout/
// SetInterval/ClearTimer/Log/RecentLogs touch only the registry's own
// locks, so they're safe to call from any plugin's executor goroutine
// directly. Emit and Config additionally need a Host lookup, which
// takes Manager's own read lock.

func (m *Manager) AddCommand(pluginName, id, title string, fn api.CommandFunc) error {
	return m.reg.AddCommand(pluginName, id, title, fn)
}

func (m *Manager) RemoveCommand(id string) { m.reg.RemoveCommand(id) }

func (m *Manager) ExecuteCommand(id string, args []interface{}) (interface{}, error) {
	return m.reg.ExecuteCommand(id, args)
}

func (m *Manager) ListCommands() []api.CommandInfo { return m.reg.ListCommands() }

func (m *Manager) Subscribe(eventType, pluginName string, handler api.EventHandler) string {
	return m.reg.Subscribe(eventType, pluginName, handler)
}

func (m *Manager) Unsubscribe(id string) { m.reg.Unsubscribe(id) }

// Emit broadcasts an editor or plugin event to every subscriber,
// dispatching each handler onto its own plugin's executor goroutine so
// one slow or misbehaving plugin can't block delivery to the others or
// block the caller (typically the editor's dispatch loop).
func (m *Manager) Emit(eventType string, data map[string]interface{}) {
	for _, sub := range m.reg.matchingSubs(eventType) {
		host, exists := m.Get(sub.plugin)
		if !exists {
			continue
		}
		handler := sub.handler
		_ = host.RunAsync(func() { handler(data) })
	}
}

func (m *Manager) SetTimeout(pluginName string, delay time.Duration, fn func()) (int, error) {
	return m.reg.SetTimeout(pluginName, delay, fn)
}

func (m *Manager) SetInterval(pluginName string, delay time.Duration, fn func()) (int, error) {
	return m.reg.SetInterval(pluginName, delay, fn)
}

func (m *Manager) ClearTimer(pluginName string, id int) { m.reg.ClearTimer(pluginName, id) }

func (m *Manager) Log(pluginName, level, message string) { m.reg.Log(pluginName, level, message) }

func (m *Manager) RecentLogs(pluginName string, n int) []api.LogEntry {
	return m.reg.RecentLogs(pluginName, n)
}

func (m *Manager) Config(pluginName string) map[string]interface{} {
	host, exists := m.Get(pluginName)
	if !exists {
		return map[string]interface{}{}
	}
	return host.Config()
}

func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
