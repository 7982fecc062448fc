package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codersauce/red/internal/action"
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/keymap"
	"github.com/codersauce/red/internal/plugin"
	"github.com/codersauce/red/internal/plugin/api"
	"github.com/codersauce/red/internal/render"
	"github.com/codersauce/red/internal/render/backend"
)

func newLoadedTestPlugin(t *testing.T, luaCode string) *plugin.Manager {
	t.Helper()
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "test-plugin")
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"test-plugin","version":"0.1.0","displayName":"Test","main":"init.lua"}`
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "init.lua"), []byte(luaCode), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := plugin.DefaultManagerConfig()
	cfg.PluginPaths = []string{dir}
	mgr := plugin.NewManager(cfg)
	ctx := context.Background()
	if _, err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if err := mgr.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if err := mgr.ActivateAll(ctx); err != nil {
		t.Fatalf("ActivateAll() error = %v", err)
	}
	return mgr
}

func TestRangeLengthSingleLine(t *testing.T) {
	buf := buffer.NewFromString("hello world\n")
	got := rangeLength(buf, api.Position{Line: 0, Col: 0}, api.Position{Line: 0, Col: 5})
	if got != 5 {
		t.Fatalf("rangeLength() = %d, want 5", got)
	}
}

func TestRangeLengthAcrossLines(t *testing.T) {
	buf := buffer.NewFromString("abc\ndef\nghi\n")
	// from (0,1) to (2,1): "bc" + "\n" + "def" + "\n" + "g" = 2+1+3+1+1 = 8
	got := rangeLength(buf, api.Position{Line: 0, Col: 1}, api.Position{Line: 2, Col: 1})
	if got != 8 {
		t.Fatalf("rangeLength() = %d, want 8", got)
	}
}

func TestRangeLengthEmptyRange(t *testing.T) {
	buf := buffer.NewFromString("abc\n")
	got := rangeLength(buf, api.Position{Line: 0, Col: 2}, api.Position{Line: 0, Col: 2})
	if got != 0 {
		t.Fatalf("rangeLength() = %d, want 0", got)
	}
}

func TestPluginGatewayCallTimesOutWhenLoopIsNotRunning(t *testing.T) {
	requests := make(chan *pluginCall) // unbuffered, nothing ever reads it
	g := &pluginGateway{requests: requests}

	start := time.Now()
	_, err := g.call(func(e *Editor) (interface{}, error) { return nil, nil })
	if err == nil {
		t.Fatal("expected a timeout error when the editor loop never accepts the request")
	}
	if elapsed := time.Since(start); elapsed > gatewayTimeout+time.Second {
		t.Fatalf("call() took %s, expected to bail out around gatewayTimeout (%s)", elapsed, gatewayTimeout)
	}
}

func TestPluginGatewayEditorInfoRoundTrips(t *testing.T) {
	be := newFakeBackend(80, 24)
	ed := New(be, &fakeFileIO{files: map[string]string{}}, "hello\n", 80, 24)
	ed.ctx.ActiveBuffer().SetPath("/tmp/f.go")

	go func() {
		req := <-ed.pluginRequests
		val, err := req.run(ed)
		req.result <- pluginCallResult{val: val, err: err}
	}()

	gw := ed.PluginGateway()
	info := gw.EditorInfo()
	if info.Width != 80 || info.Height != 24 {
		t.Fatalf("EditorInfo() size = %dx%d, want 80x24", info.Width, info.Height)
	}
	if info.BufferPath != "/tmp/f.go" {
		t.Fatalf("EditorInfo().BufferPath = %q, want /tmp/f.go", info.BufferPath)
	}
}

func TestOverlaysAreSortedByID(t *testing.T) {
	e := &Editor{}
	e.setOverlay("b", render.Overlay{Row: 1})
	e.setOverlay("a", render.Overlay{Row: 2})
	e.setOverlay("c", render.Overlay{Row: 3})

	got := e.Overlays()
	if len(got) != 3 || got[0].Row != 2 || got[1].Row != 1 || got[2].Row != 3 {
		t.Fatalf("Overlays() not sorted by id: %+v", got)
	}

	e.removeOverlay("b")
	if got := e.Overlays(); len(got) != 2 {
		t.Fatalf("Overlays() after removeOverlay = %+v, want 2 entries", got)
	}
}

func TestHandlePickerKeySelectsByDigit(t *testing.T) {
	e := &Editor{backend: newFakeBackend(80, 24)}
	result := make(chan pickResult, 1)
	e.startPicker(api.PickRequest{Items: []api.PickItem{{Label: "one"}, {Label: "two"}}}, result)

	if handled := e.handlePickerKey(keymap.Key{Rune: '2'}); !handled {
		t.Fatal("handlePickerKey() did not report handling a digit key")
	}
	res := <-result
	if !res.ok || res.index != 1 {
		t.Fatalf("pick result = %+v, want index 1 ok true", res)
	}
	if e.activePicker != nil {
		t.Fatal("expected picker to close after a selection")
	}
	if _, exists := e.overlays[pickerOverlayID]; exists {
		t.Fatal("expected picker overlay to be removed after a selection")
	}
}

func TestHandlePickerKeyEscapeCancels(t *testing.T) {
	e := &Editor{backend: newFakeBackend(80, 24)}
	result := make(chan pickResult, 1)
	e.startPicker(api.PickRequest{Items: []api.PickItem{{Label: "one"}}}, result)

	e.handlePickerKey(keymap.Key{Name: "Escape"})
	res := <-result
	if res.ok {
		t.Fatalf("expected cancellation, got %+v", res)
	}
}

func TestDiagnosticsAdapterFor(t *testing.T) {
	a := NewDiagnosticsSource(nil)
	if got := a.For("/tmp/f.go"); got != nil {
		t.Fatalf("For() with nil service = %v, want nil", got)
	}
	if got := (&diagnosticsAdapter{}).For(""); got != nil {
		t.Fatalf("For() with empty path = %v, want nil", got)
	}
}

func TestPluginNotifierIgnoresNilManager(t *testing.T) {
	n := &PluginNotifier{}
	// Must not panic with no Manager configured.
	n.NotifyPlugin(nil)
	n.NotifyResize(80, 24)
}

func TestPluginNotifierDeliversCursorMoved(t *testing.T) {
	mgr := newLoadedTestPlugin(t, `
		moved = 0
		function activate(api)
			api.on("cursor:moved", function(data) moved = moved + 1 end)
		end
	`)
	defer mgr.Close()
	host, ok := mgr.Get("test-plugin")
	if !ok {
		t.Fatal("plugin not loaded")
	}

	n := NewPluginNotifier(mgr)
	n.NotifyPlugin(action.Motion{Kind: action.MoveLeft})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		switch v := host.GetGlobal("moved").(type) {
		case int64:
			if v > 0 {
				return
			}
		case float64:
			if v > 0 {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("cursor:moved was never delivered to the plugin's on() handler")
}

var _ backend.Backend = (*fakeBackend)(nil)
