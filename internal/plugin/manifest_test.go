package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codersauce/red/internal/plugin/security"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "plugin.json")

	content := `{
		"name": "test-plugin",
		"version": "1.0.0",
		"displayName": "Test Plugin",
		"description": "A test plugin",
		"main": "init.lua",
		"capabilities": ["filesystem.read"],
		"commands": [
			{"id": "test.command", "title": "Test Command"}
		]
	}`

	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	if m.Name != "test-plugin" {
		t.Errorf("Name = %q, want %q", m.Name, "test-plugin")
	}
	if m.Version != "1.0.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.0.0")
	}
	if m.DisplayName != "Test Plugin" {
		t.Errorf("DisplayName = %q, want %q", m.DisplayName, "Test Plugin")
	}
	if m.Main != "init.lua" {
		t.Errorf("Main = %q, want %q", m.Main, "init.lua")
	}
	if len(m.Capabilities) != 1 || m.Capabilities[0] != security.CapabilityFileRead {
		t.Errorf("Capabilities = %v, want [%v]", m.Capabilities, security.CapabilityFileRead)
	}
	if len(m.Commands) != 1 || m.Commands[0].ID != "test.command" {
		t.Errorf("Commands = %v", m.Commands)
	}
}

func TestLoadManifestInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "plugin.json")
	if err := os.WriteFile(manifestPath, []byte("invalid json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadManifest(manifestPath); err == nil {
		t.Error("LoadManifest() with invalid JSON should return error")
	}
}

func TestLoadManifestNotFound(t *testing.T) {
	if _, err := LoadManifest("/nonexistent/path/plugin.json"); err == nil {
		t.Error("LoadManifest() with nonexistent file should return error")
	}
}

func TestLoadManifestFromDir(t *testing.T) {
	dir := t.TempDir()
	content := `{"name": "test-plugin", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() error = %v", err)
	}
	if m.Name != "test-plugin" {
		t.Errorf("Name = %q, want %q", m.Name, "test-plugin")
	}
}

func TestNewManifestMinimal(t *testing.T) {
	m := NewManifestMinimal("my-plugin", "/path/to/plugin")
	if m.Name != "my-plugin" {
		t.Errorf("Name = %q, want %q", m.Name, "my-plugin")
	}
	if m.Version != "0.0.0" {
		t.Errorf("Version = %q, want %q", m.Version, "0.0.0")
	}
	if m.Main != "init.lua" {
		t.Errorf("Main = %q, want %q", m.Main, "init.lua")
	}
	if m.Path() != "/path/to/plugin" {
		t.Errorf("Path() = %q, want %q", m.Path(), "/path/to/plugin")
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr bool
	}{
		{"valid", Manifest{Name: "test-plugin", Version: "1.0.0"}, false},
		{"missing name", Manifest{Version: "1.0.0"}, true},
		{"invalid name - uppercase", Manifest{Name: "Test-Plugin", Version: "1.0.0"}, true},
		{"invalid name - starts with number", Manifest{Name: "1plugin", Version: "1.0.0"}, true},
		{"missing version", Manifest{Name: "test-plugin", Version: ""}, true},
		{"invalid version", Manifest{Name: "test-plugin", Version: "invalid"}, true},
		{"invalid main file", Manifest{Name: "test-plugin", Version: "1.0.0", Main: "init.js"}, true},
		{"invalid capability", Manifest{Name: "test-plugin", Version: "1.0.0", Capabilities: []security.Capability{"invalid"}}, true},
		{"command missing id", Manifest{Name: "test-plugin", Version: "1.0.0", Commands: []CommandContribution{{Title: "Test"}}}, true},
		{"command missing title", Manifest{Name: "test-plugin", Version: "1.0.0", Commands: []CommandContribution{{ID: "test.cmd"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestValidNamePatterns(t *testing.T) {
	for _, name := range []string{"a", "ab", "my-plugin", "vim-surround", "lsp-client", "plugin123", "a1b2c3"} {
		m := Manifest{Name: name, Version: "1.0.0"}
		if err := m.Validate(); err != nil {
			t.Errorf("Name %q should be valid, got error: %v", name, err)
		}
	}
}

func TestManifestInvalidNamePatterns(t *testing.T) {
	for _, name := range []string{"", "-plugin", "plugin-", "Plugin", "PLUGIN", "my_plugin", "my plugin", "my.plugin", "123plugin", "a-"} {
		m := Manifest{Name: name, Version: "1.0.0"}
		if err := m.Validate(); err == nil {
			t.Errorf("Name %q should be invalid", name)
		}
	}
}

func TestManifestValidVersionPatterns(t *testing.T) {
	for _, version := range []string{"0.0.0", "1.0.0", "1.2.3", "10.20.30", "1.0.0-alpha", "1.0.0-beta.1", "1.0.0+build.123", "1.0.0-rc.1+build.456"} {
		m := Manifest{Name: "test", Version: version}
		if err := m.Validate(); err != nil {
			t.Errorf("Version %q should be valid, got error: %v", version, err)
		}
	}
}

func TestManifestInvalidVersionPatterns(t *testing.T) {
	for _, version := range []string{"", "1", "1.0", "v1.0.0", "1.0.0.0", "a.b.c"} {
		m := Manifest{Name: "test", Version: version}
		if err := m.Validate(); err == nil {
			t.Errorf("Version %q should be invalid", version)
		}
	}
}

func TestManifestMainPath(t *testing.T) {
	m := NewManifestMinimal("test", "/path/to/plugin")
	expected := filepath.Join("/path/to/plugin", "init.lua")
	if m.MainPath() != expected {
		t.Errorf("MainPath() = %q, want %q", m.MainPath(), expected)
	}
}

func TestManifestHasCapability(t *testing.T) {
	m := &Manifest{
		Name:         "test",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapabilityFileRead, security.CapabilityNetwork},
	}

	if !m.HasCapability(security.CapabilityFileRead) {
		t.Error("HasCapability(FileRead) = false, want true")
	}
	if !m.HasCapability(security.CapabilityNetwork) {
		t.Error("HasCapability(Network) = false, want true")
	}
	if m.HasCapability(security.CapabilityUnsafe) {
		t.Error("HasCapability(Unsafe) = true, want false")
	}
}

func TestManifestGetConfigDefault(t *testing.T) {
	m := &Manifest{
		Name:    "test",
		Version: "1.0.0",
		ConfigSchema: map[string]ConfigProperty{
			"enabled":   {Type: "boolean", Default: true},
			"count":     {Type: "number", Default: 42.0},
			"nodefault": {Type: "string"},
		},
	}

	val, ok := m.GetConfigDefault("enabled")
	if !ok || val != true {
		t.Errorf("GetConfigDefault(enabled) = %v, %v, want true, true", val, ok)
	}
	if _, ok := m.GetConfigDefault("nodefault"); ok {
		t.Error("GetConfigDefault(nodefault) ok = true, want false")
	}
	if _, ok := m.GetConfigDefault("nonexistent"); ok {
		t.Error("GetConfigDefault(nonexistent) ok = true, want false")
	}
}

func TestManifestGetAllConfigDefaults(t *testing.T) {
	m := &Manifest{
		Name:    "test",
		Version: "1.0.0",
		ConfigSchema: map[string]ConfigProperty{
			"enabled":   {Type: "boolean", Default: true},
			"count":     {Type: "number", Default: 42.0},
			"nodefault": {Type: "string"},
		},
	}

	defaults := m.GetAllConfigDefaults()
	if len(defaults) != 2 {
		t.Errorf("GetAllConfigDefaults() len = %d, want 2", len(defaults))
	}
	if defaults["enabled"] != true {
		t.Errorf("defaults[enabled] = %v, want true", defaults["enabled"])
	}
}

func TestManifestString(t *testing.T) {
	m := &Manifest{Name: "test", Version: "1.0.0", DisplayName: "Test Plugin"}
	if got, want := m.String(), "Test Plugin v1.0.0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	m2 := &Manifest{Name: "test", Version: "1.0.0"}
	if got, want := m2.String(), "test v1.0.0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestManifestClone(t *testing.T) {
	original := &Manifest{
		Name:         "test",
		Version:      "1.0.0",
		Dependencies: []string{"dep1", "dep2"},
		Capabilities: []security.Capability{security.CapabilityFileRead},
		Commands:     []CommandContribution{{ID: "cmd1", Title: "Cmd 1"}},
		ConfigSchema: map[string]ConfigProperty{
			"key": {Type: "string", Default: "value"},
		},
	}

	clone := original.Clone()
	if clone.Name != original.Name {
		t.Errorf("Clone Name = %q, want %q", clone.Name, original.Name)
	}

	clone.Name = "modified"
	if original.Name == "modified" {
		t.Error("Clone is not a deep copy - Name was modified")
	}

	clone.Dependencies[0] = "modified"
	if original.Dependencies[0] == "modified" {
		t.Error("Clone is not a deep copy - Dependencies was modified")
	}
}

func TestManifestApplyDefaults(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "plugin.json")
	content := `{"name": "test-plugin", "version": "1.0.0"}`
	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Main != "init.lua" {
		t.Errorf("Main default = %q, want %q", m.Main, "init.lua")
	}
}
