package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Editor.TabWidth != 4 {
		t.Fatalf("expected default tab width 4, got %d", c.Editor.TabWidth)
	}
}

func TestLoadParsesTOMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.toml")
	content := `
[editor]
tab_width = 2

[clipboard]
use_system_clipboard = true

[lsp_servers.rust]
command = "rust-analyzer"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Editor.TabWidth != 2 {
		t.Fatalf("expected tab width 2, got %d", c.Editor.TabWidth)
	}
	if !c.Clipboard.UseSystemClipboard {
		t.Fatalf("expected use_system_clipboard true")
	}
	if c.Editor.ScrollOff != 3 {
		t.Fatalf("expected default scroll_off 3, got %d", c.Editor.ScrollOff)
	}
	if c.LSPServers["rust"].Command != "rust-analyzer" {
		t.Fatalf("expected rust-analyzer server config, got %+v", c.LSPServers["rust"])
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("editor = [this is not valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
