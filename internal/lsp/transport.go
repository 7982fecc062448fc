package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Transport implements the LSP base protocol (JSON-RPC 2.0 framed with
// Content-Length headers) over a pair of byte streams, grounded on
// teacher internal/lsp/transport.go nearly verbatim: this layer is
// generic JSON-RPC plumbing the domain doesn't change.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[int64]chan *rpcResponse
	handlers map[string]NotificationHandler

	closed atomic.Bool
	done   chan struct{}
}

// NotificationHandler receives a server-initiated notification.
type NotificationHandler func(method string, params json.RawMessage)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type rpcNotification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewTransport wraps a server process's stdio (or any reader/writer
// pair, e.g. in tests) in the LSP framing protocol.
func NewTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		closer:   c,
		pending:  make(map[int64]chan *rpcResponse),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
}

// Start begins reading frames in a background goroutine.
func (t *Transport) Start(ctx context.Context) { go t.readLoop(ctx) }

// Close shuts the transport down, failing every pending Call.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	t.mu.Lock()
	t.pending = make(map[int64]chan *rpcResponse)
	t.mu.Unlock()
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Call sends a request and blocks for its response, a context
// cancellation, or transport shutdown, whichever comes first.
func (t *Transport) Call(ctx context.Context, method string, params, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	id := t.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	if err := t.send(&rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("lsp: send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp, ok := <-ch:
		if !ok {
			return ErrShutdown
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("lsp: unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a one-way notification; no response is expected.
func (t *Transport) Notify(_ context.Context, method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return t.send(&rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
}

// OnNotification registers the handler invoked for server-initiated
// notifications of method. Registering "*" catches everything
// unregistered handlers didn't claim.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.writer, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	_, err = t.writer.Write(data)
	return err
}

func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}
		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			continue
		}
		t.dispatch(msg)
	}
}

func (t *Transport) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			if n, err := strconv.Atoi(strings.TrimSpace(line[len("content-length:"):])); err == nil {
				contentLength = n
			}
		}
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("lsp: missing Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (t *Transport) dispatch(data json.RawMessage) {
	var probe struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Error  *RPCError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}
	if probe.ID != nil && (probe.Result != nil || probe.Error != nil) {
		var resp rpcResponse
		if json.Unmarshal(data, &resp) == nil {
			t.handleResponse(&resp)
		}
		return
	}
	if probe.Method != "" {
		var notif rpcNotification
		if json.Unmarshal(data, &notif) == nil {
			t.handleNotification(&notif)
		}
	}
}

func (t *Transport) handleResponse(resp *rpcResponse) {
	if t.closed.Load() {
		return
	}
	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()
	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

func (t *Transport) handleNotification(notif *rpcNotification) {
	t.mu.Lock()
	handler, ok := t.handlers[notif.Method]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.mu.Unlock()
	if ok && handler != nil {
		go handler(notif.Method, notif.Params)
	}
}

// IsClosed reports whether Close has been called.
func (t *Transport) IsClosed() bool { return t.closed.Load() }
