package render

import (
	"strings"
	"testing"

	"github.com/codersauce/red/internal/buffer"
	"github.com/codersauce/red/internal/mode"
	"github.com/codersauce/red/internal/window"
)

func TestComposeDrawsActiveWindowText(t *testing.T) {
	buf := buffer.NewFromString("hello\nworld\n")
	bufs := MapBufferSource{buf.ID(): buf}
	wt := window.New(buf.ID(), 20, 5)

	g := Compose(wt, bufs, nil, nil, 20, 5)

	if got := cellText(g, 0, 0, 5); got != "hello" {
		t.Fatalf("expected first line %q, got %q", "hello", got)
	}
	if got := cellText(g, 1, 0, 5); got != "world" {
		t.Fatalf("expected second line %q, got %q", "world", got)
	}
}

func TestComposeDrawsCommandLineWhenActiveWindowInCommandMode(t *testing.T) {
	buf := buffer.NewFromString("x\n")
	bufs := MapBufferSource{buf.ID(): buf}
	wt := window.New(buf.ID(), 20, 5)
	wt.Active().Mode = mode.Command
	wt.Active().CommandLine = "wq"

	g := Compose(wt, bufs, nil, nil, 20, 5)
	got := cellText(g, 4, 0, 3)
	if !strings.HasPrefix(got, ":wq") {
		t.Fatalf("expected command line to show \":wq\", got %q", got)
	}
}

func cellText(g *Grid, row, col, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(g.At(row, col+i).Grapheme)
	}
	return sb.String()
}
