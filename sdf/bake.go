package sdf

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// Grid is the regular sampling lattice of a baked field. Bucket (i, j) is
// centered at Left + (i+0.5)/spu, Down + (j+0.5)/spu and stored at i*BucketsY+j.
type Grid struct {
	Bounds         Bounds
	SamplesPerUnit float64
	BucketsX       int
	BucketsY       int

	size float64
	half float64
}

// NewGrid derives the lattice for bounds sampled at samplesPerUnit.
func NewGrid(b Bounds, samplesPerUnit float64) (Grid, error) {
	if !b.valid() {
		return Grid{}, fmt.Errorf("%w: [%g,%g]x[%g,%g]", ErrInvalidBounds, b.Left, b.Right, b.Down, b.Up)
	}
	if samplesPerUnit <= 0 {
		return Grid{}, fmt.Errorf("%w: samples per unit must be positive, got %g", ErrInvalidBounds, samplesPerUnit)
	}

	g := Grid{
		Bounds:         b,
		SamplesPerUnit: samplesPerUnit,
		BucketsX:       int((b.Right - b.Left) * samplesPerUnit),
		BucketsY:       int((b.Up - b.Down) * samplesPerUnit),
		size:           1 / samplesPerUnit,
	}
	g.half = g.size / 2
	if g.BucketsX < 1 || g.BucketsY < 1 {
		return Grid{}, fmt.Errorf("%w: %g samples per unit yields no buckets", ErrInvalidBounds, samplesPerUnit)
	}
	return g, nil
}

// Len returns the number of buckets.
func (g Grid) Len() int {
	return g.BucketsX * g.BucketsY
}

// SampleSize returns the edge length of one bucket.
func (g Grid) SampleSize() float64 {
	return g.size
}

// Center returns the sample point of bucket (i, j).
func (g Grid) Center(i, j int) r2.Vec {
	return r2.Vec{
		X: g.Bounds.Left + float64(i)*g.size + g.half,
		Y: g.Bounds.Down + float64(j)*g.size + g.half,
	}
}

// BakeOptions tunes an offline bake.
type BakeOptions struct {
	TieEpsilon  float64 // Distances closer than this count as equidistant
	EdgeEpsilon float64 // Out-of-domain margin of the resulting field
	Workers     int     // 0 = GOMAXPROCS
}

// Bake samples the signed distance to boxes on every bucket center of grid.
// Columns are computed concurrently; the result does not depend on scheduling.
func Bake(ctx context.Context, grid Grid, boxes []Box, opts BakeOptions) (*Baked, error) {
	if len(boxes) == 0 {
		return nil, ErrNoObstacles
	}
	for i, b := range boxes {
		if b.Empty() || b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
			return nil, fmt.Errorf("%w: box %d is empty", ErrInvalidBounds, i)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	samples := make([]Sample, grid.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < grid.BucketsX; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base := i * grid.BucketsY
			for j := 0; j < grid.BucketsY; j++ {
				samples[base+j] = SampleAt(grid.Center(i, j), boxes, opts.TieEpsilon)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("baking distance field: %w", err)
	}

	return NewBaked(grid, samples, opts.EdgeEpsilon)
}

// SampleAt computes the baked value for one point: the smallest box distance
// and the normalized average of the normals of every box within tieEps of it,
// flipped to point out of the solid.
func SampleAt(pos r2.Vec, boxes []Box, tieEps float64) Sample {
	best := math.Inf(1)
	var sum r2.Vec

	for _, b := range boxes {
		d := BoxDistance(pos, b)
		switch {
		case math.Abs(best-d) < tieEps:
			sum = r2.Add(sum, boxNormal(pos, b))
		case d < best:
			best = d
			sum = boxNormal(pos, b)
		}
	}

	return Sample{
		Normal:   r2.Scale(-1, unit(sum)),
		Distance: best,
	}
}

// BoxDistance is the box SDF max(|dx|-hw, |dy|-hh), with (dx, dy) the offset
// of pos from the box center.
func BoxDistance(pos r2.Vec, b Box) float64 {
	c := b.Center()
	size := b.Size()
	return math.Max(
		math.Abs(pos.X-c.X)-size.X/2,
		math.Abs(pos.Y-c.Y)-size.Y/2,
	)
}

// boxNormal returns the unit direction from pos into the box b.
func boxNormal(p r2.Vec, b Box) r2.Vec {
	lo, hi := b.Min, b.Max

	if p.X > lo.X && p.X < hi.X && p.Y > lo.Y && p.Y < hi.Y {
		return insideNormal(p, b)
	}

	outX := p.X < lo.X || p.X > hi.X
	outY := p.Y < lo.Y || p.Y > hi.Y

	switch {
	case outX && outY:
		return cornerNormal(p, b)
	case outX && p.X < lo.X:
		return r2.Vec{X: 1}
	case outX:
		return r2.Vec{X: -1}
	case outY && p.Y < lo.Y:
		return r2.Vec{Y: 1}
	case outY:
		return r2.Vec{Y: -1}
	}

	// On the boundary itself.
	switch {
	case p.X == lo.X:
		return r2.Vec{X: 1}
	case p.Y == lo.Y:
		return r2.Vec{Y: 1}
	case p.X == hi.X:
		return r2.Vec{X: -1}
	default:
		return r2.Vec{Y: -1}
	}
}

// insideNormal picks the nearest side (bottom, right, left, top on ties) and
// returns the inward-facing axis of that side.
func insideNormal(p r2.Vec, b Box) r2.Vec {
	up := b.Max.Y - p.Y
	down := p.Y - b.Min.Y
	right := b.Max.X - p.X
	left := p.X - b.Min.X
	m := min(up, down, right, left)

	switch m {
	case down:
		return r2.Vec{Y: 1}
	case right:
		return r2.Vec{X: -1}
	case left:
		return r2.Vec{X: 1}
	default:
		return r2.Vec{Y: -1}
	}
}

// cornerNormal points from p to the nearest box corner. Corners are scanned
// bottom-left, bottom-right, top-right, top-left and the first closest wins.
func cornerNormal(p r2.Vec, b Box) r2.Vec {
	corners := [4]r2.Vec{
		b.Min,
		{X: b.Max.X, Y: b.Min.Y},
		b.Max,
		{X: b.Min.X, Y: b.Max.Y},
	}

	closest := corners[0]
	best := r2.Norm2(r2.Sub(p, closest))
	for _, c := range corners[1:] {
		if d := r2.Norm2(r2.Sub(p, c)); d < best {
			best = d
			closest = c
		}
	}
	return unit(r2.Sub(closest, p))
}
