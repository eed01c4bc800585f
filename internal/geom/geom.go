// Package geom holds the small integer geometry types shared by the balloon
// core and the terminal popup host. One unit is one terminal cell.
package geom

import "fmt"

// Point is a position in screen cells.
type Point struct {
	X int
	Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Size is a width/height pair.
type Size struct {
	Width  int
	Height int
}

// Clamp bounds each axis of s to [min, max]. A non-positive max axis is
// treated as unbounded.
func (s Size) Clamp(min, max Size) Size {
	return Size{
		Width:  clampAxis(s.Width, min.Width, max.Width),
		Height: clampAxis(s.Height, min.Height, max.Height),
	}
}

func clampAxis(v, lo, hi int) int {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// R is shorthand for building a Rect.
func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

func (r Rect) Right() int  { return r.X + r.Width }
func (r Rect) Bottom() int { return r.Y + r.Height }

func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

func (r Rect) Translate(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Inset shrinks r by the given insets.
func (r Rect) Inset(in Insets) Rect {
	return Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Horizontal(),
		Height: r.Height - in.Vertical(),
	}
}

// Outset grows r by the given insets.
func (r Rect) Outset(in Insets) Rect {
	return Rect{
		X:      r.X - in.Left,
		Y:      r.Y - in.Top,
		Width:  r.Width + in.Horizontal(),
		Height: r.Height + in.Vertical(),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.Width, r.Height)
}

// Insets is space reserved around a box.
type Insets struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// Uniform returns insets of n on every side.
func Uniform(n int) Insets {
	return Insets{Top: n, Left: n, Bottom: n, Right: n}
}

func (in Insets) Horizontal() int { return in.Left + in.Right }
func (in Insets) Vertical() int   { return in.Top + in.Bottom }
