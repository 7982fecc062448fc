package lua

import (
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestNewState(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.LuaState() == nil {
		t.Error("NewState() LuaState() is nil")
	}
}

func TestStateWithOptions(t *testing.T) {
	state, err := NewState(
		WithMemoryLimit(5*1024*1024),
		WithExecutionTimeout(2*time.Second),
		WithInstructionLimit(500000),
	)
	if err != nil {
		t.Fatalf("NewState() with options error = %v", err)
	}
	defer state.Close()
}

func TestStateDoString(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if v := state.GetGlobal("x"); v.String() != "2" {
		t.Errorf("global x = %v, want 2", v)
	}
}

func TestStateDoStringAfterClose(t *testing.T) {
	state, _ := NewState()
	state.Close()
	if err := state.DoString(`x = 1`); err != ErrStateClosed {
		t.Errorf("DoString() after Close() = %v, want ErrStateClosed", err)
	}
}

func TestStateCall(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`function add(a, b) return a + b end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.Call("add", glua.LNumber(2), glua.LNumber(3))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 1 || results[0].String() != "5" {
		t.Errorf("Call(add, 2, 3) = %v, want [5]", results)
	}
}

func TestStateCallMissingFunction(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if _, err := state.Call("nonexistent"); err == nil {
		t.Error("Call() on missing function should error")
	}
}

func TestStateSandboxDisablesDofile(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`dofile("/etc/passwd")`); err == nil {
		t.Error("dofile should be disabled by the sandbox")
	}
}

func TestStateSandboxRejectsUnknownRequire(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`require("io")`); err == nil {
		t.Error("require('io') without a filesystem capability should fail")
	}
}

func TestStateReset(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	state.DoString(`myGlobal = 42`)
	if err := state.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if v := state.GetGlobal("myGlobal"); v != glua.LNil {
		t.Errorf("myGlobal after Reset() = %v, want nil", v)
	}
}
