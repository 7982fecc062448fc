package plugin

import (
	"fmt"
	"sync"
	"time"

	"github.com/codersauce/red/internal/plugin/api"
)

// registeredCommand is one addCommand() contribution.
type registeredCommand struct {
	id, title, plugin string
	fn                api.CommandFunc
}

// subscription is one on()/once() contribution.
type subscription struct {
	id, eventType, plugin string
	handler               api.EventHandler
}

// registry backs api.Services for every plugin a Manager owns: command
// and event tables, the shared TimerWheel, and a capped per-plugin log
// ring, all guarded by their own lock so a plugin's Lua callback can
// reach them from any goroutine without crossing onto the editor's
// loop. Grounded on the registries teacher's internal/plugin/manager.go
// anticipates in its wireHost comment but never built.
type registry struct {
	mu       sync.RWMutex
	commands map[string]*registeredCommand
	subs     map[string]*subscription

	logMu   sync.Mutex
	logs    map[string][]api.LogEntry
	logCap  int

	timers *TimerWheel
}

const defaultLogCap = 200

func newRegistry() *registry {
	return &registry{
		commands: make(map[string]*registeredCommand),
		subs:     make(map[string]*subscription),
		logs:     make(map[string][]api.LogEntry),
		logCap:   defaultLogCap,
		timers:   NewTimerWheel(),
	}
}

func (r *registry) AddCommand(pluginName, id, title string, fn api.CommandFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[id]; exists {
		return fmt.Errorf("command %q already registered", id)
	}
	r.commands[id] = &registeredCommand{id: id, title: title, plugin: pluginName, fn: fn}
	return nil
}

func (r *registry) RemoveCommand(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.commands, id)
}

func (r *registry) ExecuteCommand(id string, args []interface{}) (interface{}, error) {
	r.mu.RLock()
	cmd, exists := r.commands[id]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("command %q not found", id)
	}
	return cmd.fn(args)
}

func (r *registry) ListCommands() []api.CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.CommandInfo, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, api.CommandInfo{ID: c.id, Title: c.title, Plugin: c.plugin})
	}
	return out
}

func (r *registry) Subscribe(eventType, pluginName string, handler api.EventHandler) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("%s:%s:%d", pluginName, eventType, len(r.subs)+1)
	for {
		if _, exists := r.subs[id]; !exists {
			break
		}
		id += "'"
	}
	r.subs[id] = &subscription{id: id, eventType: eventType, plugin: pluginName, handler: handler}
	return id
}

func (r *registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// matchingSubs returns every live subscription for eventType. Exported
// through the registry rather than performing delivery itself, since
// delivery needs each subscriber's owning Host to dispatch onto its
// executor goroutine, and Host lookup lives on Manager.
func (r *registry) matchingSubs(eventType string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*subscription
	for _, s := range r.subs {
		if s.eventType == eventType {
			out = append(out, s)
		}
	}
	return out
}

func (r *registry) SetTimeout(pluginName string, delay time.Duration, fn func()) (int, error) {
	return r.timers.Schedule(pluginName, delay, false, fn), nil
}

func (r *registry) SetInterval(pluginName string, delay time.Duration, fn func()) (int, error) {
	return r.timers.Schedule(pluginName, delay, true, fn), nil
}

func (r *registry) ClearTimer(pluginName string, id int) {
	r.timers.Cancel(pluginName, id)
}

func (r *registry) Log(pluginName, level, message string) {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	entries := append(r.logs[pluginName], api.LogEntry{Plugin: pluginName, Level: level, Message: message, Time: time.Now()})
	if len(entries) > r.logCap {
		entries = entries[len(entries)-r.logCap:]
	}
	r.logs[pluginName] = entries
}

func (r *registry) RecentLogs(pluginName string, n int) []api.LogEntry {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	entries := r.logs[pluginName]
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]api.LogEntry, n)
	copy(out, entries[len(entries)-n:])
	return out
}
