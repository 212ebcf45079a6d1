package sdf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Sample is one precomputed bucket of a baked field.
type Sample struct {
	Normal   r2.Vec
	Distance float64
}

// Baked is a distance field sampled on a regular grid. Queries map a position
// to its bucket and return the stored sample, so cost is independent of the
// obstacle count.
type Baked struct {
	grid    Grid
	samples []Sample
	edgeEps float64

	// Extent actually covered by the buckets. It can be shorter than the
	// bounds when the width is not a multiple of the sample size.
	right, up float64
}

// NewBaked wraps precomputed samples. len(samples) must match grid.Len().
func NewBaked(grid Grid, samples []Sample, edgeEpsilon float64) (*Baked, error) {
	if grid.BucketsX < 1 || grid.BucketsY < 1 || grid.size <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidBounds, grid.BucketsX, grid.BucketsY)
	}
	if len(samples) != grid.Len() {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrSampleMismatch, len(samples), grid.Len())
	}

	return &Baked{
		grid:    grid,
		samples: samples,
		edgeEps: edgeEpsilon,
		right:   grid.Bounds.Left + float64(grid.BucketsX)*grid.size,
		up:      grid.Bounds.Down + float64(grid.BucketsY)*grid.size,
	}, nil
}

// Grid returns the sampling lattice.
func (f *Baked) Grid() Grid {
	return f.grid
}

// Samples returns the backing samples in storage order. Callers must not
// modify the slice.
func (f *Baked) Samples() []Sample {
	return f.samples
}

// Index maps pos to its bucket. Positions more than half a sample (plus the
// edge epsilon) beyond the covered extent are reported as OutsideDomain.
func (f *Baked) Index(pos r2.Vec) Token {
	g := f.grid
	margin := g.half + f.edgeEps

	if pos.X < g.Bounds.Left-margin || pos.X > f.right+margin ||
		pos.Y < g.Bounds.Down-margin || pos.Y > f.up+margin {
		return Token{Cell: OutsideDomain, Pos: pos}
	}

	i := bucket(pos.X-g.Bounds.Left, g.size, g.BucketsX)
	j := bucket(pos.Y-g.Bounds.Down, g.size, g.BucketsY)
	return Token{Cell: i*g.BucketsY + j, Pos: pos}
}

// Distance returns the stored distance of the token's bucket.
func (f *Baked) Distance(t Token) (float64, error) {
	s, err := f.sample(t)
	if err != nil {
		return 0, err
	}
	return s.Distance, nil
}

// Normal returns the stored outward normal of the token's bucket.
func (f *Baked) Normal(t Token) (r2.Vec, error) {
	s, err := f.sample(t)
	if err != nil {
		return r2.Vec{}, err
	}
	return s.Normal, nil
}

func (f *Baked) sample(t Token) (Sample, error) {
	if t.Cell < 0 || t.Cell >= len(f.samples) {
		return Sample{}, fmt.Errorf("%w: cell %d of %d", ErrTokenRange, t.Cell, len(f.samples))
	}
	return f.samples[t.Cell], nil
}

// bucket floors offset/size and clamps it into [0, n).
func bucket(offset, size float64, n int) int {
	b := int(math.Floor(offset / size))
	if b < 0 {
		return 0
	}
	if b >= n {
		return n - 1
	}
	return b
}
