package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if len(loader.Paths()) == 0 {
		t.Error("NewLoader() should have default paths")
	}
}

func TestNewLoaderWithPaths(t *testing.T) {
	loader := NewLoader(WithPaths("/custom/path1", "/custom/path2"))
	paths := loader.Paths()
	if len(paths) != 2 {
		t.Fatalf("Paths() len = %d, want 2", len(paths))
	}
	if paths[0] != "/custom/path1" {
		t.Errorf("Paths()[0] = %q, want %q", paths[0], "/custom/path1")
	}
}

func TestLoaderAddPath(t *testing.T) {
	loader := NewLoader(WithPaths("/initial"))
	loader.AddPath("/added")
	paths := loader.Paths()
	if len(paths) != 2 || paths[1] != "/added" {
		t.Errorf("Paths() = %v, want [/initial /added]", paths)
	}
}

func TestLoaderDiscoverEmpty(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(WithPaths(dir))

	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 0 {
		t.Errorf("Discover() found %d plugins in empty dir, want 0", len(plugins))
	}
}

func TestLoaderDiscoverMissingPath(t *testing.T) {
	loader := NewLoader(WithPaths(filepath.Join(t.TempDir(), "does-not-exist")))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() with missing path error = %v, want nil", err)
	}
	if len(plugins) != 0 {
		t.Errorf("Discover() = %v, want empty", plugins)
	}
}

func TestLoaderDiscoverManifestPlugin(t *testing.T) {
	dir := t.TempDir()
	createTestPluginDir(t, filepath.Join(dir, "alpha"), `-- alpha`)

	loader := NewLoader(WithPaths(dir))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "alpha" {
		t.Fatalf("Discover() = %v, want one plugin named alpha", plugins)
	}
	if plugins[0].Manifest == nil {
		t.Error("discovered plugin has nil Manifest")
	}
}

func TestLoaderDiscoverSingleFilePlugin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "onefile.lua"), []byte("-- ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(WithPaths(dir))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "onefile" {
		t.Fatalf("Discover() = %v, want one plugin named onefile", plugins)
	}
	if plugins[0].Manifest.Main != "onefile.lua" {
		t.Errorf("Manifest.Main = %q, want onefile.lua", plugins[0].Manifest.Main)
	}
}

func TestLoaderDiscoverMissingEntryPointErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "empty-plugin"), 0o755); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(WithPaths(dir))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 1 || plugins[0].Error != ErrNoEntryPoint {
		t.Fatalf("Discover() = %+v, want one plugin with ErrNoEntryPoint", plugins)
	}
}

func TestLoaderFindPluginNotFound(t *testing.T) {
	loader := NewLoader(WithPaths(t.TempDir()))
	if _, err := loader.FindPlugin("nope"); err == nil {
		t.Fatal("FindPlugin() for missing plugin error = nil, want error")
	}
}

func TestLoaderFirstPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	createTestPluginDir(t, filepath.Join(first, "dup"), "-- first")
	createTestPluginDir(t, filepath.Join(second, "dup"), "-- second")

	loader := NewLoader(WithPaths(first, second))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(plugins) != 1 {
		t.Fatalf("Discover() = %v, want a single deduped plugin", plugins)
	}
	if plugins[0].Path != filepath.Join(first, "dup") {
		t.Errorf("Path = %q, want the first search path's copy", plugins[0].Path)
	}
}
