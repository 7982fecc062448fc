package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codersauce/red/internal/plugin/api"
)

// fakeGateway is a minimal api.Gateway double so tests can exercise
// activate(api) without a running Editor on the other end of a
// pluginGateway channel.
type fakeGateway struct{ mode string }

func (g *fakeGateway) EditorInfo() api.EditorInfo { return api.EditorInfo{Mode: g.mode, Width: 80, Height: 24} }
func (g *fakeGateway) BufferText() (string, error)                      { return "", nil }
func (g *fakeGateway) InsertText(api.Position, string) error            { return nil }
func (g *fakeGateway) DeleteText(api.Position, api.Position) error      { return nil }
func (g *fakeGateway) ReplaceText(api.Position, api.Position, string) error { return nil }
func (g *fakeGateway) CursorPosition() (api.Position, error)            { return api.Position{}, nil }
func (g *fakeGateway) SetCursorPosition(api.Position) error             { return nil }
func (g *fakeGateway) OpenBuffer(string) error                          { return nil }
func (g *fakeGateway) DrawText(int, int, string, string, string) error  { return nil }
func (g *fakeGateway) CreateOverlay(api.OverlaySpec) (string, error)    { return "ov1", nil }
func (g *fakeGateway) UpdateOverlay(string, api.OverlaySpec) error      { return nil }
func (g *fakeGateway) RemoveOverlay(string) error                       { return nil }
func (g *fakeGateway) Pick(api.PickRequest) (int, bool, error)          { return 0, false, nil }
func (g *fakeGateway) Execute(string) (string, error)                   { return "", nil }

func createTestPluginDir(t *testing.T, dir, luaCode string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	name := filepath.Base(dir)
	manifest := `{
		"name": "` + name + `",
		"version": "1.0.0",
		"displayName": "Test Plugin",
		"main": "init.lua"
	}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(luaCode), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	if m == nil {
		t.Fatal("NewManager() returned nil")
	}
	if m.loader == nil {
		t.Error("Manager.loader is nil")
	}
	if m.plugins == nil {
		t.Error("Manager.plugins is nil")
	}
}

func TestManagerDiscover(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), "-- test plugin")

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}})

	plugins, err := m.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 1 {
		t.Fatalf("Discover() returned %d plugins, want 1", len(plugins))
	}
	if plugins[0].Name != "test-plugin" {
		t.Errorf("Plugin name = %q, want %q", plugins[0].Name, "test-plugin")
	}
}

func TestManagerLoadAndActivate(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `
		function activate() end
	`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	ctx := context.Background()

	if _, err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	host, err := m.Load(ctx, "test-plugin")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if host.State() != StateActive {
		t.Errorf("State() = %v, want StateActive (AutoActivate)", host.State())
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
	if m.CountActive() != 1 {
		t.Errorf("CountActive() = %d, want 1", m.CountActive())
	}
}

func TestManagerLoadAlreadyLoaded(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `function activate() end`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}})
	ctx := context.Background()
	m.Discover()

	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := m.Load(ctx, "test-plugin"); err == nil {
		t.Fatal("second Load() error = nil, want ErrAlreadyLoaded")
	}
}

func TestManagerUnload(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `function activate() end`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	ctx := context.Background()
	m.Discover()

	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := m.Unload(ctx, "test-plugin"); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if _, exists := m.Get("test-plugin"); exists {
		t.Error("Get() after Unload() found plugin, want not found")
	}
}

func TestManagerUnloadNotFound(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	if err := m.Unload(context.Background(), "nope"); err == nil {
		t.Fatal("Unload() of unknown plugin error = nil, want ErrPluginNotFound")
	}
}

func TestManagerReloadRestoresActiveState(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `function activate() end`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	ctx := context.Background()
	m.Discover()

	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := m.Reload(ctx, "test-plugin"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	host, _ := m.Get("test-plugin")
	if host.State() != StateActive {
		t.Errorf("State() after Reload() = %v, want StateActive", host.State())
	}
}

func TestManagerReloadFailureKeepsPluginRegisteredAsDisabled(t *testing.T) {
	pluginsDir := t.TempDir()
	pluginDir := filepath.Join(pluginsDir, "test-plugin")
	createTestPluginDir(t, pluginDir, `function activate() end`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	ctx := context.Background()
	m.Discover()

	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(pluginDir, "init.lua"), []byte(`broken (`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := m.Reload(ctx, "test-plugin"); err == nil {
		t.Fatal("Reload() with broken script error = nil, want error")
	}

	host, exists := m.Get("test-plugin")
	if !exists {
		t.Fatal("Get() after failed Reload() found nothing, want the disabled host still registered")
	}
	if host.State() != StateDisabled {
		t.Errorf("State() after failed Reload() = %v, want StateDisabled", host.State())
	}
	if errs := m.Errors(); errs["test-plugin"] == nil {
		t.Error("Errors() missing entry for disabled plugin")
	}
}

func TestManagerSubscribeUnsubscribe(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `function activate() end`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	ctx := context.Background()
	m.Discover()

	var events []ManagerEventType
	unsubscribe := m.SubscribeManagerEvents(func(e ManagerEvent) {
		events = append(events, e.Type)
	})

	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(events) == 0 {
		t.Fatal("Subscribe() handler received no events")
	}

	unsubscribe()
	events = nil
	m.Unload(ctx, "test-plugin")
	if len(events) != 0 {
		t.Errorf("handler fired after unsubscribe: %v", events)
	}
}

// TestManagerActivateReceivesAPIAndRoutesEvents is an end-to-end check
// of the gateway wiring a maintainer review flagged as broken: activate
// must be called with a live api table, addCommand/on registered from
// inside it must route through the real registry, and Manager.Emit
// must reach a plugin's own on() handler.
func TestManagerActivateReceivesAPIAndRoutesEvents(t *testing.T) {
	pluginsDir := t.TempDir()
	createTestPluginDir(t, filepath.Join(pluginsDir, "test-plugin"), `
		mode_seen = nil
		moved = 0

		function activate(api)
			mode_seen = api.getEditorInfo().mode
			api.addCommand("hello", "Say hello", function(args) return "hi" end)
			api.on("cursor:moved", function(data) moved = moved + 1 end)
		end
	`)

	m := NewManager(ManagerConfig{PluginPaths: []string{pluginsDir}, AutoActivate: true})
	m.SetGateway(&fakeGateway{mode: "Normal"})

	ctx := context.Background()
	m.Discover()
	if _, err := m.Load(ctx, "test-plugin"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := m.ActivateAll(ctx); err != nil {
		t.Fatalf("ActivateAll() error = %v", err)
	}
	defer m.Unload(ctx, "test-plugin")

	host, ok := m.Get("test-plugin")
	if !ok {
		t.Fatal("Get() found no host after Load()")
	}

	if v := host.GetGlobal("mode_seen"); v != "Normal" {
		t.Fatalf("mode_seen = %v, want %q (activate(api) did not receive a working gateway)", v, "Normal")
	}

	cmds := m.ListCommands()
	if len(cmds) != 1 || cmds[0].ID != "hello" {
		t.Fatalf("ListCommands() = %+v, want one command %q", cmds, "hello")
	}
	if _, err := m.ExecuteCommand("hello", nil); err != nil {
		t.Fatalf("ExecuteCommand() error = %v", err)
	}

	m.Emit("cursor:moved", map[string]interface{}{"count": 1})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, ok := host.GetGlobal("moved").(int64); ok && v > 0 {
			return
		}
		if v, ok := host.GetGlobal("moved").(float64); ok && v > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("on(\"cursor:moved\", ...) handler never ran after Emit()")
}
