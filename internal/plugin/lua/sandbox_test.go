package lua

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codersauce/red/internal/plugin/security"
)

func TestSandboxGrantFileReadEnablesIo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, _ := NewState()
	defer state.Close()
	state.Sandbox().Grant(security.CapabilityFileRead)

	err := state.DoString(`local f = io.open("` + path + `", "r"); assert(f); f:close()`)
	if err != nil {
		t.Fatalf("DoString() with CapabilityFileRead error = %v", err)
	}
}

func TestSandboxFileWriteRequiresCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	state, _ := NewState()
	defer state.Close()
	state.Sandbox().Grant(security.CapabilityFileRead)

	// io.open installed by CapabilityFileRead only accepts read modes.
	err := state.DoString(`io.open("` + path + `", "w")`)
	if err == nil {
		t.Fatal("expected write mode to be rejected without CapabilityFileWrite")
	}
}

func TestSandboxCapabilities(t *testing.T) {
	s := NewSandbox(nil, 0)
	if s.HasCapability(security.CapabilityNetwork) {
		t.Fatal("fresh sandbox should have no capabilities")
	}
	s.capabilities[security.CapabilityNetwork] = true // direct set, Grant needs a live L
	if !s.HasCapability(security.CapabilityNetwork) {
		t.Error("expected CapabilityNetwork after direct grant")
	}
	s.Revoke(security.CapabilityNetwork)
	if s.HasCapability(security.CapabilityNetwork) {
		t.Error("expected no CapabilityNetwork after Revoke")
	}
}

func TestSandboxCheckCapability(t *testing.T) {
	s := NewSandbox(nil, 0)
	if err := s.CheckCapability(security.CapabilityUnsafe); err == nil {
		t.Fatal("expected error for ungranted capability")
	}
	s.capabilities[security.CapabilityUnsafe] = true
	if err := s.CheckCapability(security.CapabilityUnsafe); err != nil {
		t.Errorf("CheckCapability() = %v, want nil", err)
	}
}

func TestSandboxInstructionLimit(t *testing.T) {
	s := NewSandbox(nil, 100)
	if s.IncrementInstructions(50) {
		t.Fatal("50 instructions should not exceed a 100 limit")
	}
	if !s.IncrementInstructions(60) {
		t.Fatal("110 instructions should exceed a 100 limit")
	}
	s.ResetInstructionCount()
	if s.InstructionCount() != 0 {
		t.Errorf("InstructionCount() after reset = %d, want 0", s.InstructionCount())
	}
}
