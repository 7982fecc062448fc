package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers plugins on disk, grounded on teacher's
// internal/plugin/loader.go.
type Loader struct {
	paths      []string
	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	State    State
	Error    error
}

type LoaderOption func(*Loader)

func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.paths = paths }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths:
// ~/.config/red/plugins, ~/.local/share/red/plugins, .red/plugins.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 3)

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "red", "plugins"))
		paths = append(paths, filepath.Join(home, ".local", "share", "red", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".red", "plugins"))
	}

	return paths
}

func (l *Loader) Paths() []string { return l.paths }

func (l *Loader) AddPath(path string) { l.paths = append(l.paths, path) }

// Discover finds every plugin across the search paths, sorted by name.
// A missing search path is not an error.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			continue
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })

	return plugins, nil
}

func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFilePlugin(name, filepath.Join(basePath, entry.Name()))
			}
			continue
		}

		pluginPath := filepath.Join(basePath, entry.Name())
		info := l.inspectPlugin(entry.Name(), pluginPath)

		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}

	return nil
}

func (l *Loader) addSingleFilePlugin(name, luaPath string) {
	if _, exists := l.discovered[name]; exists {
		return
	}

	manifest := NewManifestMinimal(name, filepath.Dir(luaPath))
	manifest.Main = filepath.Base(luaPath)

	l.discovered[name] = &PluginInfo{
		Name:     name,
		Path:     filepath.Dir(luaPath),
		Manifest: manifest,
		State:    StateUnloaded,
	}
}

func (l *Loader) inspectPlugin(name, path string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: path, State: StateUnloaded}

	manifestPath := filepath.Join(path, "plugin.json")
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			info.State = StateError
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	initPath := filepath.Join(path, "init.lua")
	if _, err := os.Stat(initPath); err == nil {
		info.Manifest = NewManifestMinimal(name, path)
		return info
	}

	pluginPath := filepath.Join(path, "plugin.lua")
	if _, err := os.Stat(pluginPath); err == nil {
		manifest := NewManifestMinimal(name, path)
		manifest.Main = "plugin.lua"
		info.Manifest = manifest
		return info
	}

	info.Error = ErrNoEntryPoint
	info.State = StateError
	return info
}

func (l *Loader) Get(name string) (*PluginInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

func (l *Loader) Refresh() ([]*PluginInfo, error) {
	return l.Discover()
}

// FindPlugin searches for a plugin by name across all search paths,
// using the discovery cache first.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, basePath := range l.paths {
		pluginPath := filepath.Join(basePath, name)
		if stat, err := os.Stat(pluginPath); err == nil && stat.IsDir() {
			info := l.inspectPlugin(name, pluginPath)
			if info.Error == nil {
				l.discovered[name] = info
				return info, nil
			}
		}

		luaPath := filepath.Join(basePath, name+".lua")
		if _, err := os.Stat(luaPath); err == nil {
			manifest := NewManifestMinimal(name, basePath)
			manifest.Main = name + ".lua"
			info := &PluginInfo{Name: name, Path: basePath, Manifest: manifest, State: StateUnloaded}
			l.discovered[name] = info
			return info, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// ValidatePlugin checks that the plugin at path has a loadable manifest.
func (l *Loader) ValidatePlugin(path string) error {
	info := l.inspectPlugin(filepath.Base(path), path)
	if info.Error != nil {
		return info.Error
	}
	if info.Manifest == nil {
		return ErrNoEntryPoint
	}
	return info.Manifest.Validate()
}

func (l *Loader) LoadManifestOnly(name string) (*Manifest, error) {
	info, err := l.FindPlugin(name)
	if err != nil {
		return nil, err
	}
	return info.Manifest, nil
}

func (l *Loader) ListNames() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) Count() int { return len(l.discovered) }

func (l *Loader) HasErrors() bool {
	for _, info := range l.discovered {
		if info.Error != nil {
			return true
		}
	}
	return false
}

func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range l.discovered {
		if info.Error != nil {
			errored = append(errored, info)
		}
	}
	return errored
}

func (l *Loader) PluginsByState(state State) []*PluginInfo {
	var filtered []*PluginInfo
	for _, info := range l.discovered {
		if info.State == state {
			filtered = append(filtered, info)
		}
	}
	return filtered
}
