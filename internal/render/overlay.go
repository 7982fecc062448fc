package render

import (
	"strconv"
	"strings"

	"github.com/codersauce/red/internal/render/style"
)

// Overlay is one chrome box drawn on top of every window and the
// command line: a plugin's api.createOverlay/drawText box, or the
// prompt api.pick() raises while waiting for a choice. Grounded on the
// "floating panel drawn last" role of teacher's renderer/overlay
// package, reduced here to the handful of fields a Lua caller supplies.
type Overlay struct {
	Row, Col int
	Lines    []string
	Style    style.Style
}

// ChromeSource supplies the overlay/popup layer Compose draws on top of
// every window and the command line.
type ChromeSource interface {
	Overlays() []Overlay
}

// ParseColor resolves a Lua-supplied color name to a style.Color: a
// "#rrggbb" hex triplet, one of a small named palette, or
// style.ColorDefault if neither matches.
func ParseColor(name string) style.Color {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return style.ColorDefault
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		r, err1 := strconv.ParseUint(name[1:3], 16, 8)
		gr, err2 := strconv.ParseUint(name[3:5], 16, 8)
		b, err3 := strconv.ParseUint(name[5:7], 16, 8)
		if err1 == nil && err2 == nil && err3 == nil {
			return style.RGB(uint8(r), uint8(gr), uint8(b))
		}
	}
	if c, ok := namedColors[name]; ok {
		return c
	}
	return style.ColorDefault
}

var namedColors = map[string]style.Color{
	"black":   style.RGB(0, 0, 0),
	"red":     style.RGB(220, 50, 47),
	"green":   style.RGB(133, 153, 0),
	"yellow":  style.RGB(181, 137, 0),
	"blue":    style.RGB(38, 139, 210),
	"magenta": style.RGB(211, 54, 130),
	"cyan":    style.RGB(42, 161, 152),
	"white":   style.RGB(238, 232, 213),
}

func drawOverlay(g *Grid, o Overlay) {
	width := 0
	for _, l := range o.Lines {
		if len(l) > width {
			width = len(l)
		}
	}
	for i, line := range o.Lines {
		row := o.Row + i
		g.WriteString(row, o.Col, padRight(line, width), o.Style)
	}
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
