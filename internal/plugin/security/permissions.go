package security

import (
	"net"
	"path/filepath"
	"strings"
	"sync"
)

// PermissionChecker validates one plugin's operations against the
// capabilities its manifest was granted, grounded on teacher
// internal/plugin/security/permissions.go almost verbatim — dropping
// shell/process checks, since spec.md names no shell-exec API surface.
type PermissionChecker struct {
	mu sync.RWMutex

	capabilities map[Capability]bool

	allowedPaths  []string
	blockedPaths  []string
	workspacePath string

	allowedHosts []string
	blockedHosts []string

	pluginName string
}

func NewPermissionChecker(pluginName string) *PermissionChecker {
	return &PermissionChecker{capabilities: make(map[Capability]bool), pluginName: pluginName}
}

func (pc *PermissionChecker) Grant(cap Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.capabilities[cap] = true
}

func (pc *PermissionChecker) Revoke(cap Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.capabilities, cap)
}

func (pc *PermissionChecker) GrantAll(caps []Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for _, cap := range caps {
		pc.capabilities[cap] = true
	}
}

func (pc *PermissionChecker) HasCapability(cap Capability) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.capabilities[cap] {
		return true
	}
	for granted := range pc.capabilities {
		if ImpliesCapability(granted, cap) {
			return true
		}
	}
	return false
}

func (pc *PermissionChecker) CheckCapability(cap Capability) error {
	if !pc.HasCapability(cap) {
		return NewCapabilityError(cap, "", "not granted")
	}
	return nil
}

func (pc *PermissionChecker) Capabilities() []Capability {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	caps := make([]Capability, 0, len(pc.capabilities))
	for cap := range pc.capabilities {
		caps = append(caps, cap)
	}
	return caps
}

// SetWorkspacePath sets the boundary file reads/writes must stay
// inside, unless an explicit AllowPath widens it.
func (pc *PermissionChecker) SetWorkspacePath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.workspacePath = normalizePath(path)
}

func (pc *PermissionChecker) AllowPath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.allowedPaths = append(pc.allowedPaths, normalizePath(path))
}

func (pc *PermissionChecker) BlockPath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.blockedPaths = append(pc.blockedPaths, normalizePath(path))
}

func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

func (pc *PermissionChecker) CheckFileRead(path string) error {
	if !pc.HasCapability(CapabilityFileRead) {
		return NewCapabilityError(CapabilityFileRead, "read file", "not granted")
	}
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.checkPathAccess(path, "read")
}

func (pc *PermissionChecker) CheckFileWrite(path string) error {
	if !pc.HasCapability(CapabilityFileWrite) {
		return NewCapabilityError(CapabilityFileWrite, "write file", "not granted")
	}
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.checkPathAccess(path, "write")
}

func (pc *PermissionChecker) checkPathAccess(path, operation string) error {
	absPath := normalizePath(path)

	for _, blocked := range pc.blockedPaths {
		if isWithinPath(absPath, blocked) {
			return NewCapabilityError(CapabilityFileRead, operation, "path is blocked")
		}
	}

	if len(pc.allowedPaths) > 0 {
		allowed := false
		for _, allowedPath := range pc.allowedPaths {
			if isWithinPath(absPath, allowedPath) {
				allowed = true
				break
			}
		}
		if !allowed {
			return NewCapabilityError(CapabilityFileRead, operation, "path not in allowed list")
		}
	}

	if pc.workspacePath != "" && len(pc.allowedPaths) == 0 {
		if !isWithinPath(absPath, pc.workspacePath) {
			return NewCapabilityError(CapabilityFileRead, operation, "path outside workspace")
		}
	}

	return nil
}

// isWithinPath reports whether target is within or equal to base,
// correctly rejecting siblings like "/tmp/blockedfile" vs "/tmp/blocked".
func isWithinPath(target, base string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

func (pc *PermissionChecker) AllowHost(host string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.allowedHosts = append(pc.allowedHosts, strings.ToLower(host))
}

func (pc *PermissionChecker) BlockHost(host string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.blockedHosts = append(pc.blockedHosts, strings.ToLower(host))
}

func (pc *PermissionChecker) CheckNetwork(host string) error {
	if !pc.HasCapability(CapabilityNetwork) {
		return NewCapabilityError(CapabilityNetwork, "network request", "not granted")
	}
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	hostOnly := strings.ToLower(extractHost(host))

	for _, blocked := range pc.blockedHosts {
		if matchHost(hostOnly, blocked) {
			return NewCapabilityError(CapabilityNetwork, "network request", "host is blocked")
		}
	}
	if len(pc.allowedHosts) > 0 {
		allowed := false
		for _, allowedHost := range pc.allowedHosts {
			if matchHost(hostOnly, allowedHost) {
				allowed = true
				break
			}
		}
		if !allowed {
			return NewCapabilityError(CapabilityNetwork, "network request", "host not in allowed list")
		}
	}
	return nil
}

// extractHost handles "host:port" and bracketed IPv6 "[::1]:8080".
func extractHost(hostPort string) string {
	host, _, err := net.SplitHostPort(hostPort)
	if err == nil {
		return host
	}
	if strings.HasPrefix(hostPort, "[") && strings.HasSuffix(hostPort, "]") {
		return hostPort[1 : len(hostPort)-1]
	}
	return hostPort
}

func (pc *PermissionChecker) CheckClipboard(operation string) error {
	if !pc.HasCapability(CapabilityClipboard) {
		return NewCapabilityError(CapabilityClipboard, operation, "not granted")
	}
	return nil
}

func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return false
}

// PermissionSet bundles the grants a plugin manifest resolves to, so
// Host construction can apply them in one call.
type PermissionSet struct {
	Capabilities []Capability
	AllowedPaths []string
	BlockedPaths []string
	AllowedHosts []string
	BlockedHosts []string
}

func (pc *PermissionChecker) ApplyPermissionSet(set *PermissionSet) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for _, cap := range set.Capabilities {
		pc.capabilities[cap] = true
	}
	for _, path := range set.AllowedPaths {
		pc.allowedPaths = append(pc.allowedPaths, normalizePath(path))
	}
	for _, path := range set.BlockedPaths {
		pc.blockedPaths = append(pc.blockedPaths, normalizePath(path))
	}
	for _, host := range set.AllowedHosts {
		pc.allowedHosts = append(pc.allowedHosts, strings.ToLower(host))
	}
	for _, host := range set.BlockedHosts {
		pc.blockedHosts = append(pc.blockedHosts, strings.ToLower(host))
	}
}

func (pc *PermissionChecker) Reset() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.capabilities = make(map[Capability]bool)
	pc.allowedPaths = nil
	pc.blockedPaths = nil
	pc.allowedHosts = nil
	pc.blockedHosts = nil
}
