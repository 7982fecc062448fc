package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/codersauce/red/internal/plugin/security"
)

// Manifest describes a plugin's metadata and requirements, grounded on
// teacher's internal/plugin/manifest.go.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Author      string `json:"author"`
	License     string `json:"license"`

	// Main is the relative path to the entry-point Lua file, default "init.lua".
	Main string `json:"main"`

	Dependencies []string `json:"dependencies"`

	Capabilities []security.Capability `json:"capabilities"`

	Commands    []CommandContribution    `json:"commands"`
	Keybindings []KeybindingContribution `json:"keybindings"`

	ConfigSchema map[string]ConfigProperty `json:"configSchema"`

	path string
}

// CommandContribution declares an ex/command-palette command the plugin provides.
type CommandContribution struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// KeybindingContribution declares a default keybinding a plugin wants
// merged into the active keymap.
type KeybindingContribution struct {
	Keys    string `json:"keys"`
	Command string `json:"command"`
	Mode    string `json:"mode"`
}

// ConfigProperty describes one entry of a plugin's configuration schema.
type ConfigProperty struct {
	Type        string      `json:"type"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

var (
	ErrMissingName        = errors.New("manifest: name is required")
	ErrInvalidName        = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion     = errors.New("manifest: version is required")
	ErrInvalidVersion     = errors.New("manifest: version must be valid semver")
	ErrInvalidMain        = errors.New("manifest: main must be a .lua file")
	ErrInvalidCapability  = errors.New("manifest: invalid capability")
	ErrInvalidConfigType  = errors.New("manifest: invalid config property type")
	ErrMissingCommandID   = errors.New("manifest: command id is required")
	ErrMissingCommandName = errors.New("manifest: command title is required")
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

var validConfigTypes = map[string]bool{
	"string": true, "number": true, "boolean": true, "array": true, "object": true,
}

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads plugin.json from a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, "plugin.json"))
}

// NewManifestMinimal creates a manifest for a single-file plugin with
// no plugin.json.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{Name: name, Version: "0.0.0", Main: "init.lua", path: path}
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is well-formed.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for _, cap := range m.Capabilities {
		if !security.IsValidCapability(cap) {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, cap)
		}
	}

	for i, cmd := range m.Commands {
		if cmd.ID == "" {
			return fmt.Errorf("%w at index %d", ErrMissingCommandID, i)
		}
		if cmd.Title == "" {
			return fmt.Errorf("%w at index %d (id: %s)", ErrMissingCommandName, i, cmd.ID)
		}
	}

	for name, prop := range m.ConfigSchema {
		if prop.Type != "" && !validConfigTypes[prop.Type] {
			return fmt.Errorf("%w: %s.%s has type %q", ErrInvalidConfigType, m.Name, name, prop.Type)
		}
	}

	return nil
}

// Path returns the plugin's directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the entry-point Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// HasCapability reports whether the manifest requests cap.
func (m *Manifest) HasCapability(cap security.Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// GetConfigDefault returns the schema default for key, if any.
func (m *Manifest) GetConfigDefault(key string) (interface{}, bool) {
	if prop, ok := m.ConfigSchema[key]; ok && prop.Default != nil {
		return prop.Default, true
	}
	return nil, false
}

// GetAllConfigDefaults returns every schema default, keyed by property name.
func (m *Manifest) GetAllConfigDefaults() map[string]interface{} {
	defaults := make(map[string]interface{})
	for key, prop := range m.ConfigSchema {
		if prop.Default != nil {
			defaults[key] = prop.Default
		}
	}
	return defaults
}

func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	clone := *m

	if m.Dependencies != nil {
		clone.Dependencies = append([]string(nil), m.Dependencies...)
	}
	if m.Capabilities != nil {
		clone.Capabilities = append([]security.Capability(nil), m.Capabilities...)
	}
	if m.Commands != nil {
		clone.Commands = append([]CommandContribution(nil), m.Commands...)
	}
	if m.Keybindings != nil {
		clone.Keybindings = append([]KeybindingContribution(nil), m.Keybindings...)
	}
	if m.ConfigSchema != nil {
		clone.ConfigSchema = make(map[string]ConfigProperty, len(m.ConfigSchema))
		for k, v := range m.ConfigSchema {
			clone.ConfigSchema[k] = v
		}
	}

	return &clone
}
