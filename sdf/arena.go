package sdf

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Arena is a closed rectangular container. Particles live inside it and the
// solid is everything beyond its four edges.
type Arena struct {
	bounds Bounds
}

// NewArena creates an arena from its four edges.
func NewArena(b Bounds) (*Arena, error) {
	if !b.valid() {
		return nil, fmt.Errorf("%w: arena [%g,%g]x[%g,%g]", ErrInvalidBounds, b.Left, b.Right, b.Down, b.Up)
	}
	return &Arena{bounds: b}, nil
}

// Bounds returns the arena edges.
func (a *Arena) Bounds() Bounds {
	return a.bounds
}

// Index wraps the position; the arena never rejects a query.
func (a *Arena) Index(pos r2.Vec) Token {
	return Token{Pos: pos}
}

// Distance returns the smallest signed gap to the four edges. It is negative
// outside the arena.
func (a *Arena) Distance(t Token) (float64, error) {
	top, bottom, right, left := a.gaps(t.Pos)
	return min(top, bottom, right, left), nil
}

// Normal points from the nearest edge into the arena. Equidistant edges are
// resolved in the order bottom, right, left, top.
func (a *Arena) Normal(t Token) (r2.Vec, error) {
	top, bottom, right, left := a.gaps(t.Pos)
	d := min(top, bottom, right, left)

	switch d {
	case bottom:
		return r2.Vec{X: 0, Y: 1}, nil
	case right:
		return r2.Vec{X: -1, Y: 0}, nil
	case left:
		return r2.Vec{X: 1, Y: 0}, nil
	default:
		return r2.Vec{X: 0, Y: -1}, nil
	}
}

func (a *Arena) gaps(p r2.Vec) (top, bottom, right, left float64) {
	top = a.bounds.Up - p.Y
	bottom = p.Y - a.bounds.Down
	right = a.bounds.Right - p.X
	left = p.X - a.bounds.Left
	return top, bottom, right, left
}
