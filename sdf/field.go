// Package sdf answers "how far and in which direction is the nearest solid"
// for 2D positions. Two strategies share one query contract: an analytic
// rectangular arena and a field baked offline from axis-aligned boxes.
package sdf

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r2"
)

// OutsideDomain is the cell of a token whose position lies outside the
// sampled region of a baked field.
const OutsideDomain = -1

// Errors returned by field construction and queries.
var (
	ErrNoObstacles    = errors.New("sdf: obstacle set is empty")
	ErrInvalidBounds  = errors.New("sdf: invalid bounds")
	ErrTokenRange     = errors.New("sdf: token out of range")
	ErrSampleMismatch = errors.New("sdf: sample count does not match bounds")
)

// Token is the opaque handle returned by Field.Index and passed back to
// Distance and Normal. Analytic fields carry the position, baked fields the
// flattened bucket.
type Token struct {
	Cell int
	Pos  r2.Vec
}

// InDomain reports whether the token refers to a sampled location.
func (t Token) InDomain() bool {
	return t.Cell != OutsideDomain
}

// Field is the boundary query oracle used by the solver.
//
// Normal returns a unit vector pointing out of the solid, i.e. the direction a
// particle must move to leave the boundary.
type Field interface {
	Index(pos r2.Vec) Token
	Distance(t Token) (float64, error)
	Normal(t Token) (r2.Vec, error)
}

// Bounds is the rectangle a field covers.
type Bounds struct {
	Left, Right, Down, Up float64
}

func (b Bounds) valid() bool {
	return b.Right > b.Left && b.Up > b.Down
}

// Box is an axis-aligned solid obstacle.
type Box = r2.Box

// unit returns p normalized, or the zero vector when p has no length.
func unit(p r2.Vec) r2.Vec {
	n := r2.Norm(p)
	if n < 1e-12 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, p)
}
