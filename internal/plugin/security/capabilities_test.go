package security

import "testing"

func TestCapabilityConstants(t *testing.T) {
	tests := []struct {
		cap      Capability
		expected string
	}{
		{CapabilityFileRead, "filesystem.read"},
		{CapabilityFileWrite, "filesystem.write"},
		{CapabilityNetwork, "network"},
		{CapabilityClipboard, "clipboard"},
		{CapabilityUnsafe, "unsafe"},
		{CapabilityEditor, "editor"},
		{CapabilityBuffer, "editor.buffer"},
		{CapabilityCursor, "editor.cursor"},
		{CapabilityKeymap, "editor.keymap"},
		{CapabilityCommand, "editor.command"},
		{CapabilityUI, "editor.ui"},
		{CapabilityEvent, "editor.event"},
		{CapabilityLSP, "editor.lsp"},
		{CapabilityTimer, "editor.timer"},
	}

	for _, tt := range tests {
		if string(tt.cap) != tt.expected {
			t.Errorf("Capability %q != %q", tt.cap, tt.expected)
		}
	}
}

func TestGetCapabilityInfo(t *testing.T) {
	info, ok := GetCapabilityInfo(CapabilityFileRead)
	if !ok {
		t.Fatal("GetCapabilityInfo(CapabilityFileRead) ok = false")
	}
	if info.Name != CapabilityFileRead {
		t.Errorf("info.Name = %q, want %q", info.Name, CapabilityFileRead)
	}
	if info.DisplayName == "" {
		t.Error("info.DisplayName is empty")
	}

	_, ok = GetCapabilityInfo("nonexistent")
	if ok {
		t.Error("GetCapabilityInfo(nonexistent) should return ok = false")
	}
}

func TestIsValidCapability(t *testing.T) {
	if !IsValidCapability(CapabilityFileRead) {
		t.Error("IsValidCapability(CapabilityFileRead) = false")
	}
	if IsValidCapability("nonexistent") {
		t.Error("IsValidCapability(nonexistent) = true")
	}
}

func TestIsChildOf(t *testing.T) {
	if !IsChildOf(CapabilityBuffer, CapabilityEditor) {
		t.Error("editor.buffer should be a child of editor")
	}
	if IsChildOf(CapabilityEditor, CapabilityBuffer) {
		t.Error("editor should not be a child of editor.buffer")
	}
	if IsChildOf(CapabilityNetwork, CapabilityEditor) {
		t.Error("network should not be a child of editor")
	}
}

func TestImpliesCapability(t *testing.T) {
	if !ImpliesCapability(CapabilityEditor, CapabilityBuffer) {
		t.Error("granting editor should imply editor.buffer")
	}
	if !ImpliesCapability(CapabilityFileRead, CapabilityFileRead) {
		t.Error("granting a capability should imply itself")
	}
	if ImpliesCapability(CapabilityBuffer, CapabilityEditor) {
		t.Error("granting editor.buffer should not imply editor")
	}
	if ImpliesCapability(CapabilityNetwork, CapabilityFileRead) {
		t.Error("unrelated capabilities should not imply each other")
	}
}

func TestCapabilityError(t *testing.T) {
	err := NewCapabilityError(CapabilityNetwork, "fetch", "not granted")
	if err.Error() == "" {
		t.Error("CapabilityError.Error() returned empty string")
	}

	bare := NewCapabilityError(CapabilityNetwork, "", "not granted")
	if bare.Error() == "" {
		t.Error("CapabilityError.Error() with no operation returned empty string")
	}
}
