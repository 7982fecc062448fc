// Package render holds the 2-D cell grid the editor composites each
// frame into, and the diff that turns two grids into a minimal sequence
// of terminal writes.
package render

import (
	"github.com/codersauce/red/internal/coord"
	"github.com/codersauce/red/internal/render/style"
	"github.com/rivo/uniseg"
)

// Cell is one terminal cell: a grapheme cluster (possibly multi-
// codepoint, e.g. a ZWJ emoji sequence) plus its style. Continuation
// marks the right half of a wide grapheme occupying two cells; it holds
// no content of its own and is skipped during diffing.
type Cell struct {
	Grapheme     string
	Style        style.Style
	Continuation bool
}

// Empty is a single blank cell in the default style.
func Empty() Cell { return Cell{Grapheme: " ", Style: style.Default()} }

// Equals reports whether two cells render identically.
func (c Cell) Equals(o Cell) bool {
	return c.Grapheme == o.Grapheme && c.Style.Equals(o.Style) && c.Continuation == o.Continuation
}

// Grid is a W×H array of cells in row-major order.
type Grid struct {
	W, H  int
	Cells []Cell
}

// NewGrid returns a w×h grid filled with Empty cells.
func NewGrid(w, h int) *Grid {
	g := &Grid{W: w, H: h, Cells: make([]Cell, w*h)}
	for i := range g.Cells {
		g.Cells[i] = Empty()
	}
	return g
}

// At returns the cell at (row, col), or Empty() if out of bounds.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= g.H || col < 0 || col >= g.W {
		return Empty()
	}
	return g.Cells[row*g.W+col]
}

// Set writes a cell at (row, col). Out-of-bounds writes are silently
// dropped, matching the "truncate at the edge" rule for wide graphemes
// landing on the last column.
func (g *Grid) Set(row, col int, c Cell) {
	if row < 0 || row >= g.H || col < 0 || col >= g.W {
		return
	}
	g.Cells[row*g.W+col] = c
}

// WriteString writes s starting at (row, col), one cell per grapheme
// cluster, using width-2 clusters' right half as a Continuation cell.
// A wide grapheme that would land exactly on the last column is
// truncated to a single blank cell instead of overflowing the grid.
func (g *Grid) WriteString(row, col int, s string, st style.Style) {
	c := col
	for _, gr := range graphemes(s) {
		w := coord.DisplayWidth(gr)
		if w == 0 {
			continue
		}
		if c+w > g.W {
			g.Set(row, c, Cell{Grapheme: " ", Style: st})
			break
		}
		g.Set(row, c, Cell{Grapheme: gr, Style: st})
		for k := 1; k < w; k++ {
			g.Set(row, c+k, Cell{Grapheme: "", Style: st, Continuation: true})
		}
		c += w
	}
}

// FillRow fills the full row with a cell, e.g. to clear before a layer
// draws into it.
func (g *Grid) FillRow(row int, c Cell) {
	for col := 0; col < g.W; col++ {
		g.Set(row, col, c)
	}
}

// graphemes splits s into its grapheme clusters using the same boundary
// rules as package coord.
func graphemes(s string) []string {
	var out []string
	rest := s
	state := -1
	for len(rest) > 0 {
		cluster, remainder, _, newState := uniseg.FirstGraphemeClusterInString(rest, state)
		out = append(out, cluster)
		rest = remainder
		state = newState
	}
	return out
}
