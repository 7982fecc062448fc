// Package dispatcher routes dispatched actions to the handler
// responsible for their family, opening and closing undo groups around
// each dispatch, adapted from teacher internal/dispatcher (handler
// registry, ExecutionContext) and internal/dispatcher/handlers/* (one
// handler per action family).
package dispatcher

import (
	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/clipboard"
	"github.com/codersauce/red/internal/history"
	"github.com/codersauce/red/internal/window"
)

// Context carries everything a Handler needs to execute one action.
// Unlike the teacher's execctx, which abstracts every subsystem behind
// an interface so handlers can be tested against mocks, this editor has
// exactly one implementation of each subsystem, so Context holds
// concrete types directly; handlers are still tested by constructing a
// real, small Context rather than a mock.
type Context struct {
	Windows   *window.Tree
	Buffers   map[buffer.ID]*buffer.Buffer
	Clipboard *clipboard.Store

	// History holds one undo/redo stack per buffer. It lives here rather
	// than as a field on buffer.Buffer because package history imports
	// buffer.Position, and a Buffer-owned *history.History would create
	// an import cycle; keeping it in Context keeps both packages
	// one-directional while still giving every buffer its own stack.
	History map[buffer.ID]*history.History

	// Count is the pending repeat count (vim-style "3j"); 1 if none was
	// typed.
	Count int

	// Data carries handler-specific scratch state across a single
	// dispatch, e.g. the excommand handler's quit-requested flag read by
	// the editor loop after Execute returns.
	Data map[string]interface{}
}

// NewContext returns a Context wired to wt/bufs/clip with Count reset to 1.
func NewContext(wt *window.Tree, bufs map[buffer.ID]*buffer.Buffer, clip *clipboard.Store) *Context {
	return &Context{
		Windows:   wt,
		Buffers:   bufs,
		Clipboard: clip,
		History:   make(map[buffer.ID]*history.History),
		Count:     1,
		Data:      make(map[string]interface{}),
	}
}

// HistoryFor returns id's undo/redo stack, creating an empty one on
// first use.
func (c *Context) HistoryFor(id buffer.ID) *history.History {
	h, ok := c.History[id]
	if !ok {
		h = history.New()
		c.History[id] = h
	}
	return h
}

// ActiveBuffer returns the buffer backing the active window.
func (c *Context) ActiveBuffer() *buffer.Buffer {
	return c.Buffers[c.Windows.Active().BufferID]
}

// GetCount returns Count, defaulting to 1 for zero or negative values.
func (c *Context) GetCount() int {
	if c.Count <= 0 {
		return 1
	}
	return c.Count
}

func (c *Context) SetData(key string, value interface{}) {
	if c.Data == nil {
		c.Data = make(map[string]interface{})
	}
	c.Data[key] = value
}

func (c *Context) GetData(key string) (interface{}, bool) {
	if c.Data == nil {
		return nil, false
	}
	v, ok := c.Data[key]
	return v, ok
}
