package lua

import (
	"fmt"
	"sync"
	"time"

	glua "github.com/yuin/gopher-lua"
)

// Default limits for a Lua state.
const (
	DefaultMemoryLimit      = 10 * 1024 * 1024 // advisory, gopher-lua doesn't enforce it
	DefaultExecutionTimeout = 5 * time.Second
	DefaultInstructionLimit = 10_000_000
)

// State wraps gopher-lua with sandboxing and panic recovery for one
// plugin's script. Like the underlying LState, State is not safe for
// concurrent use from multiple goroutines; callers needing that should
// wrap it in an Executor.
type State struct {
	L *glua.LState

	mu sync.Mutex

	memoryLimit      int64
	executionTimeout time.Duration
	instructionLimit int64

	sandbox *Sandbox

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

func WithMemoryLimit(bytes int64) StateOption {
	return func(s *State) { s.memoryLimit = bytes }
}

func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) { s.executionTimeout = d }
}

func WithInstructionLimit(limit int64) StateOption {
	return func(s *State) { s.instructionLimit = limit }
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		memoryLimit:      DefaultMemoryLimit,
		executionTimeout: DefaultExecutionTimeout,
		instructionLimit: DefaultInstructionLimit,
	}
	for _, opt := range opts {
		opt(state)
	}

	L := glua.NewState(glua.Options{SkipOpenLibs: true})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.instructionLimit)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens only the Lua stdlib pieces with no
// filesystem, process, or sandbox-escape surface. io/os/debug/package
// are intentionally left closed; Sandbox.Grant opens them selectively.
func openSafeLibraries(L *glua.LState) {
	glua.OpenBase(L)
	glua.OpenTable(L)
	glua.OpenString(L)
	glua.OpenMath(L)
}

// DoFile executes a Lua file synchronously.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	s.sandbox.ResetInstructionCount()
	return s.doWithRecovery(func() error { return s.L.DoFile(path) })
}

// DoString executes Lua source synchronously.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	s.sandbox.ResetInstructionCount()
	return s.doWithRecovery(func() error { return s.L.DoString(code) })
}

func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Call invokes a global Lua function by name, returning an empty
// (non-nil) slice if it returns no values.
func (s *State) Call(fn string, args ...glua.LValue) ([]glua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStateClosed
	}
	s.sandbox.ResetInstructionCount()

	fnVal := s.L.GetGlobal(fn)
	if fnVal == glua.LNil {
		return nil, fmt.Errorf("function %q not found", fn)
	}
	if fnVal.Type() != glua.LTFunction {
		return nil, fmt.Errorf("%q is not a function (got %s)", fn, fnVal.Type())
	}

	stackTop := s.L.GetTop()
	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(arg)
	}

	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = s.L.PCall(len(args), glua.MultRet, nil)
	}()
	if callErr != nil {
		return nil, callErr
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []glua.LValue{}, nil
	}
	results := make([]glua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)
	return results, nil
}

func (s *State) GetGlobal(name string) glua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return glua.LNil
	}
	return s.L.GetGlobal(name)
}

func (s *State) SetGlobal(name string, value glua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

func (s *State) RegisterFunc(name string, fn glua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.NewFunction(fn))
}

func (s *State) RegisterModule(name string, funcs map[string]glua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
}

// LuaState returns the underlying gopher-lua state. Direct access
// bypasses the mutex and sandbox; callers are responsible for
// thread-safety.
func (s *State) LuaState() *glua.LState {
	return s.L
}

// Sandbox returns the state's sandbox for capability management.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// Reset clears user-defined globals while preserving the loaded
// standard libraries, cheaper than tearing down and recreating the
// state but not a full cleanup (metatables and registry entries survive).
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	globals := s.L.Get(glua.GlobalsIndex).(*glua.LTable)
	safeGlobals := map[string]bool{
		"_G": true, "_VERSION": true,
		"assert": true, "error": true, "getmetatable": true,
		"ipairs": true, "next": true, "pairs": true, "pcall": true,
		"print": true, "rawequal": true, "rawget": true, "rawlen": true,
		"rawset": true, "select": true, "setmetatable": true,
		"tonumber": true, "tostring": true, "type": true, "xpcall": true,
		"coroutine": true, "math": true, "string": true, "table": true,
	}

	var keysToRemove []glua.LValue
	globals.ForEach(func(k, _ glua.LValue) {
		if ks, ok := k.(glua.LString); ok && !safeGlobals[string(ks)] {
			keysToRemove = append(keysToRemove, k)
		}
	})
	for _, k := range keysToRemove {
		s.L.SetGlobal(k.String(), glua.LNil)
	}

	s.sandbox.ResetInstructionCount()
	return nil
}
