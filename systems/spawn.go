package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/sdf"
)

// SpawnRandom scatters count positions uniformly inside b shrunk by margin.
func SpawnRandom(rng *rand.Rand, count int, b sdf.Bounds, margin float64) []r2.Vec {
	left, right := b.Left+margin, b.Right-margin
	down, up := b.Down+margin, b.Up-margin
	if right < left {
		left, right = (b.Left+b.Right)/2, (b.Left+b.Right)/2
	}
	if up < down {
		down, up = (b.Down+b.Up)/2, (b.Down+b.Up)/2
	}

	out := make([]r2.Vec, count)
	for i := range out {
		out[i] = r2.Vec{
			X: left + rng.Float64()*(right-left),
			Y: down + rng.Float64()*(up-down),
		}
	}
	return out
}

// SpawnBlock packs count positions on a square lattice, row by row from the
// lower left corner of b shrunk by margin. Rows that would leave the bounds
// are clamped to the top edge.
func SpawnBlock(count int, b sdf.Bounds, margin, spacing float64) []r2.Vec {
	if spacing <= 0 {
		spacing = 0.5
	}
	left, down := b.Left+margin, b.Down+margin
	right, up := b.Right-margin, b.Up-margin

	cols := max(1, int(math.Sqrt(float64(count))))
	if fit := int((right-left)/spacing) + 1; fit > 0 && cols > fit {
		cols = fit
	}

	out := make([]r2.Vec, count)
	for i := range out {
		col, row := i%cols, i/cols
		out[i] = r2.Vec{
			X: clampFloat(left+float64(col)*spacing, left, right),
			Y: clampFloat(down+float64(row)*spacing, down, up),
		}
	}
	return out
}
