package lua

import (
	"context"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestExecutorExecute(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go exec.Run(ctx)
	defer exec.Close()

	err := exec.Execute(context.Background(), func(L *glua.LState) error {
		return L.DoString(`x = 1 + 1`)
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if L.GetGlobal("x").String() != "2" {
		t.Errorf("global x = %v, want 2", L.GetGlobal("x"))
	}
}

func TestExecutorExecuteAfterClose(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	ctx, cancel := context.WithCancel(context.Background())
	go exec.Run(ctx)
	exec.Close()
	cancel()

	time.Sleep(10 * time.Millisecond)
	if err := exec.Execute(context.Background(), func(L *glua.LState) error { return nil }); err != ErrExecutorClosed {
		t.Errorf("Execute() after Close() = %v, want ErrExecutorClosed", err)
	}
}

func TestExecutorExecutePropagatesPanic(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go exec.Run(ctx)
	defer exec.Close()

	err := exec.Execute(context.Background(), func(L *glua.LState) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected Execute() to surface the recovered panic as an error")
	}
}

func TestExecutorExecuteAsync(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go exec.Run(ctx)
	defer exec.Close()

	done := make(chan struct{})
	err := exec.ExecuteAsync(func(L *glua.LState) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteAsync() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ExecuteAsync() callback never ran")
	}
}
