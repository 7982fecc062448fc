package lsp

import (
	"context"
	"testing"
)

func TestManagerReturnsErrNoServerForUnregisteredLanguage(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Hover(context.Background(), "rust", "file:///a.rs", "fn main() {}", 0, 0)
	if err == nil {
		t.Fatalf("expected an error for an unconfigured language")
	}
	serr, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if serr.Err != ErrNoServer {
		t.Fatalf("expected ErrNoServer, got %v", serr.Err)
	}
}

func TestManagerNotifyIsBestEffortForUnregisteredLanguage(t *testing.T) {
	m := NewManager(nil)
	if err := m.notify(context.Background(), "rust", "textDocument/didOpen", nil); err != nil {
		t.Fatalf("expected notify to swallow errors, got %v", err)
	}
}

func TestManagerSetWorkspaceFoldersIsSafeBeforeAnyServerStarts(t *testing.T) {
	m := NewManager(nil)
	m.SetWorkspaceFolders([]WorkspaceFolder{{URI: "file:///proj", Name: "proj"}})
}
