package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of one language server process.
type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ServerConfig names the executable and arguments used to spawn a
// language server for one language tag.
type ServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	WorkDir string
	Timeout time.Duration
}

// Server owns one spawned language-server process: its pipes, its
// Transport, and the capabilities negotiated at initialize. Grounded on
// teacher internal/lsp/server.go, trimmed to what Manager and
// DiagnosticsService need.
type Server struct {
	config   ServerConfig
	language string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	transport *Transport
	status    atomic.Int32
	encoding  Encoding

	mu              sync.Mutex
	diagHandler     func(uri DocumentURI, version int, diags []Diagnostic)
	progressHandler func(token json.RawMessage, value json.RawMessage)
	logHandler      func(params LogMessageParams)

	exitCh chan struct{}
}

// NewServer constructs a Server for language, not yet started.
func NewServer(config ServerConfig, language string) *Server {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Server{config: config, language: language, exitCh: make(chan struct{})}
}

// Status returns the server's current lifecycle state.
func (s *Server) Status() Status { return Status(s.status.Load()) }

// Encoding returns the position encoding negotiated at initialize.
func (s *Server) Encoding() Encoding { return s.encoding }

// OnDiagnostics registers the callback invoked for
// textDocument/publishDiagnostics.
func (s *Server) OnDiagnostics(fn func(uri DocumentURI, version int, diags []Diagnostic)) {
	s.mu.Lock()
	s.diagHandler = fn
	s.mu.Unlock()
}

// OnProgress registers the callback invoked for $/progress.
func (s *Server) OnProgress(fn func(token, value json.RawMessage)) {
	s.mu.Lock()
	s.progressHandler = fn
	s.mu.Unlock()
}

// OnLogMessage registers the callback invoked for window/logMessage and
// window/showMessage.
func (s *Server) OnLogMessage(fn func(LogMessageParams)) {
	s.mu.Lock()
	s.logHandler = fn
	s.mu.Unlock()
}

// Start spawns the process, wires its stdio into a Transport, and
// performs the initialize/initialized handshake.
func (s *Server) Start(ctx context.Context, folders []WorkspaceFolder) error {
	if !s.status.CompareAndSwap(int32(StatusStopped), int32(StatusStarting)) {
		return fmt.Errorf("lsp: server %s already started", s.language)
	}

	cmd := exec.CommandContext(ctx, s.config.Command, s.config.Args...)
	cmd.Env = os.Environ()
	for k, v := range s.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	} else if len(folders) > 0 {
		cmd.Dir = URIToFilePath(folders[0].URI)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.status.Store(int32(StatusError))
		return fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		s.status.Store(int32(StatusError))
		return fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		s.status.Store(int32(StatusError))
		return fmt.Errorf("lsp: start %s: %w", s.config.Command, err)
	}

	s.cmd, s.stdin, s.stdout = cmd, stdin, stdout
	s.transport = NewTransport(stdout, stdin, stdin)
	s.registerNotificationHandlers()
	s.transport.Start(ctx)
	go s.monitor()

	if err := s.initialize(ctx, folders); err != nil {
		s.status.Store(int32(StatusError))
		s.stopProcess()
		return fmt.Errorf("lsp: initialize %s: %w", s.language, err)
	}
	s.status.Store(int32(StatusReady))
	return nil
}

func (s *Server) initialize(ctx context.Context, folders []WorkspaceFolder) error {
	var rootURI DocumentURI
	if len(folders) > 0 {
		rootURI = folders[0].URI
	}
	params := InitializeParams{
		ProcessID:        os.Getpid(),
		RootURI:          rootURI,
		Capabilities:     DefaultClientCapabilities(),
		WorkspaceFolders: folders,
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var raw json.RawMessage
	if err := s.transport.Call(ctx, "initialize", params, &raw); err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}
	s.encoding = negotiateEncoding(raw)

	return s.transport.Notify(ctx, "initialized", InitializedParams{})
}

func (s *Server) monitor() {
	if s.cmd == nil {
		return
	}
	s.cmd.Wait()
	close(s.exitCh)
}

func (s *Server) stopProcess() {
	if s.transport != nil {
		s.transport.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

// Exited returns a channel closed when the server process has exited,
// for Supervisor to watch.
func (s *Server) Exited() <-chan struct{} { return s.exitCh }

// Shutdown sends the LSP shutdown/exit sequence and tears the process down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Status() != StatusReady {
		s.stopProcess()
		s.status.Store(int32(StatusStopped))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	_ = s.transport.Call(ctx, "shutdown", nil, nil)
	_ = s.transport.Notify(ctx, "exit", nil)
	s.stopProcess()
	s.status.Store(int32(StatusStopped))
	return nil
}

func (s *Server) registerNotificationHandlers() {
	s.transport.OnNotification("textDocument/publishDiagnostics", func(_ string, params json.RawMessage) {
		var p PublishDiagnosticsParams
		if json.Unmarshal(params, &p) != nil {
			return
		}
		s.mu.Lock()
		h := s.diagHandler
		s.mu.Unlock()
		if h != nil {
			h(p.URI, p.Version, p.Diags)
		}
	})
	s.transport.OnNotification("$/progress", func(_ string, params json.RawMessage) {
		var p ProgressParams
		if json.Unmarshal(params, &p) != nil {
			return
		}
		s.mu.Lock()
		h := s.progressHandler
		s.mu.Unlock()
		if h != nil {
			h(p.Token, p.Value)
		}
	})
	logFwd := func(_ string, params json.RawMessage) {
		var p LogMessageParams
		if json.Unmarshal(params, &p) != nil {
			return
		}
		s.mu.Lock()
		h := s.logHandler
		s.mu.Unlock()
		if h != nil {
			h(p)
		}
	}
	s.transport.OnNotification("window/logMessage", logFwd)
	s.transport.OnNotification("window/showMessage", logFwd)
}

// Call issues a request through this server's transport.
func (s *Server) Call(ctx context.Context, method string, params, result any) error {
	if s.Status() != StatusReady {
		return ErrServerUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.transport.Call(ctx, method, params, result)
}

// Notify issues a notification through this server's transport.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if s.Status() != StatusReady {
		return ErrServerUnavailable
	}
	return s.transport.Notify(ctx, method, params)
}
