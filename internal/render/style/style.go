// Package style holds the color and text-attribute types the renderer
// composites into each cell of a frame.
package style

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Attribute is a bitset of text attributes.
type Attribute uint16

const (
	AttrNone Attribute = 0
	AttrBold Attribute = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrReverse
	AttrStrikethrough
)

// Has reports whether a contains attr.
func (a Attribute) Has(attr Attribute) bool { return a&attr != 0 }

// With returns a with attr added.
func (a Attribute) With(attr Attribute) Attribute { return a | attr }

// Color is a terminal color: true color, an indexed palette entry, or
// "the terminal's default".
type Color struct {
	R, G, B uint8
	Indexed bool
	Default bool
}

// ColorDefault is the terminal's default foreground/background.
var ColorDefault = Color{Default: true}

// RGB builds a true-color Color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// Indexed builds a palette-indexed Color; idx is stored in R.
func Indexed(idx uint8) Color { return Color{R: idx, Indexed: true} }

// toColorful converts a true-color Color to a go-colorful Color for
// blend/lighten/darken math; indexed and default colors pass through
// their RGB fields unchanged (palette resolution happens at the backend).
func (c Color) toColorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(cc colorful.Color) Color {
	r, g, b := cc.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// Blend linearly interpolates toward other by amount ∈ [0,1], in
// perceptually-uniform Lab space. Used to tint diagnostic squiggles and
// to desaturate inactive-window borders without hand-rolling gamma-
// correct RGB math.
func (c Color) Blend(other Color, amount float64) Color {
	if c.Indexed || c.Default || other.Indexed || other.Default {
		if amount >= 0.5 {
			return other
		}
		return c
	}
	return fromColorful(c.toColorful().BlendLab(other.toColorful(), amount))
}

// Lighten blends c toward white by amount ∈ [0,1].
func (c Color) Lighten(amount float64) Color { return c.Blend(Color{R: 255, G: 255, B: 255}, amount) }

// Darken blends c toward black by amount ∈ [0,1].
func (c Color) Darken(amount float64) Color { return c.Blend(Color{}, amount) }

// Equals reports whether two colors are identical.
func (c Color) Equals(o Color) bool {
	return c.Default == o.Default && c.Indexed == o.Indexed && c.R == o.R && c.G == o.G && c.B == o.B
}

// String renders a Color for debugging/logging.
func (c Color) String() string {
	if c.Default {
		return "default"
	}
	if c.Indexed {
		return fmt.Sprintf("idx(%d)", c.R)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Style is a foreground/background color pair plus text attributes.
type Style struct {
	Fg, Bg Color
	Attrs  Attribute
}

// Default returns a style using the terminal's default colors. The zero
// Style value is NOT this — it's black-on-black — so callers always
// start from Default() rather than a bare Style{}.
func Default() Style { return Style{Fg: ColorDefault, Bg: ColorDefault} }

// WithFg returns a copy of s with the foreground color replaced.
func (s Style) WithFg(c Color) Style { s.Fg = c; return s }

// WithBg returns a copy of s with the background color replaced.
func (s Style) WithBg(c Color) Style { s.Bg = c; return s }

// WithAttrs returns a copy of s with attrs merged in.
func (s Style) WithAttrs(attrs Attribute) Style { s.Attrs = s.Attrs.With(attrs); return s }

// Merge layers other on top of s: non-default colors in other win, and
// attributes accumulate.
func (s Style) Merge(other Style) Style {
	out := s
	if !other.Fg.Default {
		out.Fg = other.Fg
	}
	if !other.Bg.Default {
		out.Bg = other.Bg
	}
	out.Attrs = out.Attrs.With(other.Attrs)
	return out
}

// Equals reports whether two styles render identically.
func (s Style) Equals(o Style) bool {
	return s.Fg.Equals(o.Fg) && s.Bg.Equals(o.Bg) && s.Attrs == o.Attrs
}
