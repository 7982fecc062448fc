package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"
)

// readFrame reads one Content-Length-framed LSP message off r, grounded
// on Transport.readMessage's own framing logic, duplicated here since
// the test plays the part of a language server.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var n int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			n, _ = strconv.Atoi(strings.TrimSpace(line[len("content-length:"):]))
		}
	}
	body := make([]byte, n)
	_, err := io.ReadFull(r, body)
	return body, err
}

func writeFrame(w io.Writer, msg []byte) error {
	_, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(msg), msg)
	return err
}

func TestTransportCallReceivesResponse(t *testing.T) {
	toServer, fromClient := io.Pipe()
	fromServer, toClient := io.Pipe()
	client := NewTransport(fromServer, fromClient, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	go func() {
		r := bufio.NewReader(toServer)
		req, err := readFrame(r)
		if err != nil {
			return
		}
		var probe struct {
			ID int64 `json:"id"`
		}
		json.Unmarshal(req, &probe)
		resp := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"capabilities":{}}}`, probe.ID)
		writeFrame(toClient, []byte(resp))
	}()

	var result InitializeResult
	if err := client.Call(context.Background(), "initialize", InitializeParams{}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestTransportNotifySendsFramedMessage(t *testing.T) {
	pr, pw := io.Pipe()
	transport := NewTransport(pr, pw, nil)
	defer transport.Close()

	done := make(chan string, 1)
	go func() {
		r := bufio.NewReader(pr)
		line, _ := r.ReadString('\n')
		done <- line
	}()

	if err := transport.Notify(context.Background(), "textDocument/didOpen", map[string]string{"x": "y"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case line := <-done:
		if !strings.HasPrefix(line, "Content-Length:") {
			t.Fatalf("expected a Content-Length header line, got %q", line)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for framed write")
	}
}

func TestTransportCloseFailsPendingCalls(t *testing.T) {
	pr, pw := io.Pipe()
	transport := NewTransport(pr, pw, pw)
	go io.Copy(io.Discard, pr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- transport.Call(context.Background(), "shutdown", nil, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	transport.Close()

	select {
	case err := <-errCh:
		if err != ErrShutdown {
			t.Fatalf("expected ErrShutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Call never returned after Close")
	}
}

func TestTransportDispatchRoutesNotifications(t *testing.T) {
	clientR, serverW := io.Pipe()
	transport := NewTransport(clientR, io.Discard, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport.Start(ctx)

	received := make(chan json.RawMessage, 1)
	transport.OnNotification("textDocument/publishDiagnostics", func(method string, params json.RawMessage) {
		received <- params
	})

	msg := []byte(`{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{"uri":"file:///a.go","diagnostics":[]}}`)
	go writeFrame(serverW, msg)

	select {
	case params := <-received:
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if p.URI != "file:///a.go" {
			t.Fatalf("unexpected uri %q", p.URI)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for dispatched notification")
	}
}
