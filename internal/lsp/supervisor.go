package lsp

import (
	"context"
	"sync"
	"time"
)

// SupervisorConfig controls restart backoff.
type SupervisorConfig struct {
	MaxRestarts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultSupervisorConfig matches teacher's defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{MaxRestarts: 5, InitialBackoff: time.Second, MaxBackoff: 60 * time.Second, BackoffMultiplier: 2}
}

// Supervisor restarts a crashed Server lazily: spec.md §4.7 says a dead
// server is restarted "on next request", not by a background watchdog
// loop, so EnsureRunning is the only entry point — there is no
// goroutine polling Server.Exited() here, unlike teacher
// internal/lsp/supervisor.go's eager restart loop.
type Supervisor struct {
	mu       sync.Mutex
	cfg      SupervisorConfig
	factory  func() *Server
	server   *Server
	folders  []WorkspaceFolder
	attempts int
	failed   bool
	nextTry  time.Time
}

// NewSupervisor wraps factory, which must return a fresh, unstarted Server.
func NewSupervisor(cfg SupervisorConfig, factory func() *Server) *Supervisor {
	return &Supervisor{cfg: cfg, factory: factory}
}

// SetWorkspaceFolders updates the folders passed to Server.Start on the
// next (re)start.
func (sv *Supervisor) SetWorkspaceFolders(folders []WorkspaceFolder) {
	sv.mu.Lock()
	sv.folders = folders
	sv.mu.Unlock()
}

// EnsureRunning returns a ready Server, starting or restarting it if
// necessary. Returns ErrServerUnavailable while backed off after
// exhausting MaxRestarts, or during an active backoff window.
func (sv *Supervisor) EnsureRunning(ctx context.Context) (*Server, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.server != nil && sv.server.Status() == StatusReady {
		select {
		case <-sv.server.Exited():
			sv.server.stopProcess()
		default:
			return sv.server, nil
		}
	}
	if sv.failed {
		return nil, ErrServerUnavailable
	}
	if !sv.nextTry.IsZero() && time.Now().Before(sv.nextTry) {
		return nil, ErrServerUnavailable
	}

	sv.server = sv.factory()
	if err := sv.server.Start(ctx, sv.folders); err != nil {
		sv.attempts++
		if sv.attempts >= sv.cfg.MaxRestarts {
			sv.failed = true
			return nil, ErrServerUnavailable
		}
		backoff := sv.cfg.InitialBackoff
		for i := 0; i < sv.attempts-1 && backoff < sv.cfg.MaxBackoff; i++ {
			backoff = time.Duration(float64(backoff) * sv.cfg.BackoffMultiplier)
		}
		if backoff > sv.cfg.MaxBackoff {
			backoff = sv.cfg.MaxBackoff
		}
		sv.nextTry = time.Now().Add(backoff)
		return nil, ErrServerUnavailable
	}
	sv.attempts = 0
	sv.nextTry = time.Time{}
	return sv.server, nil
}

// Shutdown stops the current server, if any.
func (sv *Supervisor) Shutdown(ctx context.Context) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.server == nil {
		return nil
	}
	return sv.server.Shutdown(ctx)
}
