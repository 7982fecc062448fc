package lua

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	glua "github.com/yuin/gopher-lua"
)

// LuaCall represents a Lua operation to be executed.
type LuaCall struct {
	// Fn is the function to execute on the Lua state. It receives the
	// LState and should perform all Lua operations.
	Fn func(L *glua.LState) error

	// Result receives the result of the operation and is closed after
	// the send.
	Result chan error
}

// Executor serializes all Lua operations for one plugin through a
// single goroutine, matching the concurrency model in SPEC_FULL.md §5:
// one goroutine owns a plugin's *glua.LState and drains a typed
// request channel, so no cross-thread lock is ever held across a Lua
// call. gopher-lua's LState is not goroutine-safe; every access must
// come from the goroutine running Executor.Run.
type Executor struct {
	L      *glua.LState
	queue  chan *LuaCall
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates a new Executor for the given Lua state. queueSize
// bounds how many pending calls may be buffered before Execute blocks.
func NewExecutor(L *glua.LState, queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Executor{
		L:     L,
		queue: make(chan *LuaCall, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes queued Lua operations until ctx is cancelled or Close
// is called. Must run on the goroutine that owns the Lua state.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case call, ok := <-e.queue:
			if !ok {
				return
			}
			err := e.executeCall(call)
			select {
			case call.Result <- err:
			default:
			}
			close(call.Result)
		}
	}
}

func (e *Executor) executeCall(call *LuaCall) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua panic")
			}
		}
	}()
	return call.Fn(e.L)
}

func (e *Executor) drainQueue(err error) {
	for {
		select {
		case call, ok := <-e.queue:
			if !ok {
				return
			}
			select {
			case call.Result <- err:
			default:
			}
			close(call.Result)
		default:
			return
		}
	}
}

// Execute queues fn and blocks until it has run on the executor's
// goroutine, or ctx is cancelled first.
func (e *Executor) Execute(ctx context.Context, fn func(L *glua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	call := &LuaCall{Fn: fn, Result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- call:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-call.Result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}
}

// ExecuteAsync queues fn without waiting for completion, for
// fire-and-forget event dispatch. Returns an error if the queue is
// full or the executor is closed.
func (e *Executor) ExecuteAsync(fn func(L *glua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	call := &LuaCall{Fn: fn, Result: make(chan error, 1)}

	select {
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- call:
		go func() { <-call.Result }()
		return nil
	default:
		return errors.New("lua executor queue full")
	}
}

// Close stops the executor. In-flight operations complete with
// ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// IsClosed reports whether Close has been called.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}
