// Package config loads the editor's TOML settings file into a typed
// Config, grounded on teacher internal/config (config.go's section
// accessors, loader/toml.go's pelletier/go-toml/v2 parse) collapsed
// from the teacher's layered registry/schema/watcher machinery (user
// settings merged over defaults with live-reload and JSON-schema
// validation) into a single load-once-at-startup struct, since
// SPEC_FULL.md has no hot-reload or remote-settings requirement.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Editor holds text-editing defaults.
type Editor struct {
	TabWidth   int  `toml:"tab_width"`
	InsertTabs bool `toml:"insert_tabs"`
	ScrollOff  int  `toml:"scroll_off"`
	WrapLines  bool `toml:"wrap_lines"`
}

// Clipboard controls register behavior.
type Clipboard struct {
	UseSystemClipboard bool `toml:"use_system_clipboard"`
}

// LSPServer names the command used to spawn a language server for one
// language tag (e.g. "go", "rust").
type LSPServer struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Logging controls the sink internal/logging.Logger writes to.
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Plugin controls the Lua plugin host.
type Plugin struct {
	Dir            string `toml:"dir"`
	TimerQuota     int    `toml:"timer_quota"`
	DisablePlugins bool   `toml:"disable_plugins"`
}

// Config is the editor's full settings tree, as loaded from one TOML
// file. applyDefaults fills tab width, scroll-off, log level, timer quota
// and LSP servers when they are unset; every other field keeps its zero
// value when the file leaves it out.
type Config struct {
	Editor     Editor               `toml:"editor"`
	Clipboard  Clipboard            `toml:"clipboard"`
	Logging    Logging              `toml:"logging"`
	Plugin     Plugin               `toml:"plugin"`
	LSPServers map[string]LSPServer `toml:"lsp_servers"`
}

// Default returns the built-in configuration used when no config file
// is present.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Load reads and parses the TOML file at path, filling unset fields
// with their defaults. A missing file is not an error: Load returns
// Default() unchanged, matching teacher loader.TOMLLoader.LoadFrom's
// "file doesn't exist, not an error" rule.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := &Config{}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyDefaults(c)
	return c, nil
}

func applyDefaults(c *Config) {
	if c.Editor.TabWidth == 0 {
		c.Editor.TabWidth = 4
	}
	if c.Editor.ScrollOff == 0 {
		c.Editor.ScrollOff = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Plugin.TimerQuota == 0 {
		c.Plugin.TimerQuota = 256
	}
	if c.LSPServers == nil {
		c.LSPServers = map[string]LSPServer{
			"go": {Command: "gopls"},
		}
	}
}
