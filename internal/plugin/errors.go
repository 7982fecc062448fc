package plugin

import "errors"

// Plugin system errors.
var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrNoEntryPoint   = errors.New("plugin has no entry point (init.lua or plugin.lua)")
	ErrNilManifest    = errors.New("manifest is nil")
	ErrAlreadyLoaded  = errors.New("plugin is already loaded")
	ErrNotLoaded      = errors.New("plugin is not loaded")
	ErrPluginDisabled = errors.New("plugin is disabled")
	ErrCapabilityDenied = errors.New("capability denied")
	ErrInvalidPlugin  = errors.New("invalid plugin")
	ErrTimerQuotaFull = errors.New("plugin timer quota exceeded")
)
