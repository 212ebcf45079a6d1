package sdf

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const tol = 1e-9

func TestArenaDistanceAndNormal(t *testing.T) {
	arena, err := NewArena(Bounds{Left: -1, Right: 1, Down: -1, Up: 1})
	require.NoError(t, err)

	tests := []struct {
		name   string
		pos    r2.Vec
		dist   float64
		normal r2.Vec
	}{
		{"near right edge", r2.Vec{X: 0.5}, 0.5, r2.Vec{X: -1}},
		{"near left edge", r2.Vec{X: -0.75}, 0.25, r2.Vec{X: 1}},
		{"near top edge", r2.Vec{Y: 0.9}, 0.1, r2.Vec{Y: -1}},
		{"near bottom edge", r2.Vec{Y: -0.9}, 0.1, r2.Vec{Y: 1}},
		{"center ties to bottom", r2.Vec{}, 1, r2.Vec{Y: 1}},
		{"right and top tie to right", r2.Vec{X: 0.5, Y: 0.5}, 0.5, r2.Vec{X: -1}},
		{"outside right", r2.Vec{X: 2}, -1, r2.Vec{X: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := arena.Index(tc.pos)
			d, err := arena.Distance(tok)
			require.NoError(t, err)
			n, err := arena.Normal(tok)
			require.NoError(t, err)

			assert.InDelta(t, tc.dist, d, tol)
			assert.InDelta(t, tc.normal.X, n.X, tol)
			assert.InDelta(t, tc.normal.Y, n.Y, tol)
		})
	}
}

func TestArenaIndexIsIdempotent(t *testing.T) {
	arena, err := NewArena(Bounds{Left: -3, Right: 3, Down: -2, Up: 2})
	require.NoError(t, err)

	p := r2.Vec{X: 1.3, Y: -0.7}
	a, b := arena.Index(p), arena.Index(p)
	assert.Equal(t, a, b)
	assert.True(t, a.InDomain())
}

func TestNewArenaRejectsInvertedBounds(t *testing.T) {
	_, err := NewArena(Bounds{Left: 1, Right: -1, Down: -1, Up: 1})
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(Bounds{Left: -2, Right: 2, Down: -2, Up: 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, g.BucketsX)
	assert.Equal(t, 8, g.BucketsY)
	assert.Equal(t, 64, g.Len())
	assert.InDelta(t, 0.5, g.SampleSize(), tol)

	c := g.Center(0, 0)
	assert.InDelta(t, -1.75, c.X, tol)
	assert.InDelta(t, -1.75, c.Y, tol)

	_, err = NewGrid(Bounds{Left: 0, Right: 1, Down: 0, Up: 1}, 0.5)
	assert.ErrorIs(t, err, ErrInvalidBounds)
	_, err = NewGrid(Bounds{Left: 0, Right: 1, Down: 0, Up: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestBoxDistance(t *testing.T) {
	b := Box{Min: r2.Vec{X: -1, Y: -1}, Max: r2.Vec{X: 1, Y: 1}}

	assert.InDelta(t, -1, BoxDistance(r2.Vec{}, b), tol)
	assert.InDelta(t, 0, BoxDistance(r2.Vec{X: 1}, b), tol)
	assert.InDelta(t, 2, BoxDistance(r2.Vec{Y: 3}, b), tol)
	// Chebyshev-style outside corners.
	assert.InDelta(t, 1, BoxDistance(r2.Vec{X: 2, Y: 2}, b), tol)
}

func TestBoxNormal(t *testing.T) {
	b := Box{Min: r2.Vec{X: -1, Y: -1}, Max: r2.Vec{X: 1, Y: 1}}
	h := math.Sqrt(0.5)

	tests := []struct {
		name string
		pos  r2.Vec
		want r2.Vec
	}{
		{"inside near bottom", r2.Vec{Y: -0.8}, r2.Vec{Y: 1}},
		{"inside near top", r2.Vec{Y: 0.8}, r2.Vec{Y: -1}},
		{"inside near right", r2.Vec{X: 0.8}, r2.Vec{X: -1}},
		{"inside center ties to bottom", r2.Vec{}, r2.Vec{Y: 1}},
		{"left of box", r2.Vec{X: -3, Y: 0.5}, r2.Vec{X: 1}},
		{"right of box", r2.Vec{X: 3, Y: -1}, r2.Vec{X: -1}},
		{"below box", r2.Vec{X: 0.2, Y: -4}, r2.Vec{Y: 1}},
		{"above box", r2.Vec{X: 1, Y: 4}, r2.Vec{Y: -1}},
		{"on left side", r2.Vec{X: -1, Y: 0.3}, r2.Vec{X: 1}},
		{"on top side", r2.Vec{X: 0.3, Y: 1}, r2.Vec{Y: -1}},
		{"beyond top right corner", r2.Vec{X: 2, Y: 2}, r2.Vec{X: -h, Y: -h}},
		{"beyond bottom left corner", r2.Vec{X: -2, Y: -2}, r2.Vec{X: h, Y: h}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := boxNormal(tc.pos, b)
			assert.InDelta(t, tc.want.X, got.X, tol)
			assert.InDelta(t, tc.want.Y, got.Y, tol)
		})
	}
}

func TestSampleAtAveragesTiedNormals(t *testing.T) {
	boxes := []Box{
		{Min: r2.Vec{X: -2, Y: -1}, Max: r2.Vec{X: -1, Y: 1}},
		{Min: r2.Vec{X: -1, Y: -2}, Max: r2.Vec{X: 1, Y: -1}},
	}

	s := SampleAt(r2.Vec{}, boxes, 1e-4)
	h := math.Sqrt(0.5)
	assert.InDelta(t, 1, s.Distance, tol)
	assert.InDelta(t, h, s.Normal.X, tol)
	assert.InDelta(t, h, s.Normal.Y, tol)

	// Without a tie tolerance only the first box contributes.
	s = SampleAt(r2.Vec{}, boxes, 0)
	assert.InDelta(t, 1, s.Normal.X, tol)
	assert.InDelta(t, 0, s.Normal.Y, tol)
}

func TestSampleAtKeepsNearestBox(t *testing.T) {
	boxes := []Box{
		{Min: r2.Vec{X: 5, Y: -1}, Max: r2.Vec{X: 6, Y: 1}},
		{Min: r2.Vec{X: -2, Y: -1}, Max: r2.Vec{X: -1, Y: 1}},
	}

	s := SampleAt(r2.Vec{}, boxes, 1e-4)
	assert.InDelta(t, 1, s.Distance, tol)
	assert.InDelta(t, 1, s.Normal.X, tol)
	assert.InDelta(t, 0, s.Normal.Y, tol)
}

func bakeFixture(t *testing.T) *Baked {
	t.Helper()
	grid, err := NewGrid(Bounds{Left: -2, Right: 2, Down: -2, Up: 2}, 2)
	require.NoError(t, err)

	boxes := []Box{{Min: r2.Vec{X: -0.75, Y: -1.25}, Max: r2.Vec{X: 0.75, Y: 0.75}}}
	f, err := Bake(context.Background(), grid, boxes, BakeOptions{TieEpsilon: 1e-4, EdgeEpsilon: 1e-4})
	require.NoError(t, err)
	return f
}

func TestBakedEdgeMidpoint(t *testing.T) {
	f := bakeFixture(t)

	tok := f.Index(r2.Vec{X: -0.75, Y: -0.25})
	require.True(t, tok.InDomain())
	assert.Equal(t, 2*8+3, tok.Cell)

	d, err := f.Distance(tok)
	require.NoError(t, err)
	n, err := f.Normal(tok)
	require.NoError(t, err)

	assert.InDelta(t, 0, d, tol)
	assert.InDelta(t, -1, n.X, tol)
	assert.InDelta(t, 0, n.Y, tol)
}

func TestBakedCorner(t *testing.T) {
	f := bakeFixture(t)

	tok := f.Index(r2.Vec{X: 1.25, Y: 1.25})
	d, err := f.Distance(tok)
	require.NoError(t, err)
	n, err := f.Normal(tok)
	require.NoError(t, err)

	h := math.Sqrt(0.5)
	assert.InDelta(t, 0.5, d, tol)
	assert.InDelta(t, h, n.X, tol)
	assert.InDelta(t, h, n.Y, tol)
}

func TestBakeMatchesSequentialSampling(t *testing.T) {
	f := bakeFixture(t)
	g := f.Grid()
	boxes := []Box{{Min: r2.Vec{X: -0.75, Y: -1.25}, Max: r2.Vec{X: 0.75, Y: 0.75}}}

	for i := 0; i < g.BucketsX; i++ {
		for j := 0; j < g.BucketsY; j++ {
			want := SampleAt(g.Center(i, j), boxes, 1e-4)
			assert.Equal(t, want, f.Samples()[i*g.BucketsY+j], "bucket (%d,%d)", i, j)
		}
	}
}

func TestBakeRejectsEmptyObstacleSet(t *testing.T) {
	grid, err := NewGrid(Bounds{Left: 0, Right: 1, Down: 0, Up: 1}, 4)
	require.NoError(t, err)

	_, err = Bake(context.Background(), grid, nil, BakeOptions{})
	assert.ErrorIs(t, err, ErrNoObstacles)
}

func TestBakeHonorsCancellation(t *testing.T) {
	grid, err := NewGrid(Bounds{Left: 0, Right: 4, Down: 0, Up: 4}, 4)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boxes := []Box{{Min: r2.Vec{X: 1, Y: 1}, Max: r2.Vec{X: 2, Y: 2}}}
	_, err = Bake(ctx, grid, boxes, BakeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBakedIndexDomain(t *testing.T) {
	f := bakeFixture(t)

	tests := []struct {
		name   string
		pos    r2.Vec
		inside bool
		cell   int
	}{
		{"origin", r2.Vec{}, true, 4*8 + 4},
		{"within half sample past right", r2.Vec{X: 2.2}, true, 7*8 + 4},
		{"within half sample below", r2.Vec{Y: -2.2}, true, 4 * 8},
		{"far right", r2.Vec{X: 2.3}, false, OutsideDomain},
		{"far above", r2.Vec{Y: 10}, false, OutsideDomain},
		{"far left and below", r2.Vec{X: -5, Y: -5}, false, OutsideDomain},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := f.Index(tc.pos)
			assert.Equal(t, tc.inside, tok.InDomain())
			assert.Equal(t, tc.cell, tok.Cell)
		})
	}
}

func TestBakedRejectsOutOfRangeTokens(t *testing.T) {
	f := bakeFixture(t)

	_, err := f.Distance(f.Index(r2.Vec{X: 100}))
	assert.ErrorIs(t, err, ErrTokenRange)
	_, err = f.Normal(Token{Cell: 64})
	assert.ErrorIs(t, err, ErrTokenRange)
}

func TestNewBakedSampleMismatch(t *testing.T) {
	grid, err := NewGrid(Bounds{Left: 0, Right: 1, Down: 0, Up: 1}, 2)
	require.NoError(t, err)

	_, err = NewBaked(grid, make([]Sample, 3), 0)
	assert.ErrorIs(t, err, ErrSampleMismatch)
}

func TestBakedAssetRoundtrip(t *testing.T) {
	f := bakeFixture(t)
	path := filepath.Join(t.TempDir(), "field.sdf")
	require.NoError(t, f.Save(path))

	loaded, err := LoadBaked(path, f.Grid(), 1e-4)
	require.NoError(t, err)
	require.Len(t, loaded.Samples(), len(f.Samples()))

	for i, s := range f.Samples() {
		got := loaded.Samples()[i]
		assert.InDelta(t, s.Distance, got.Distance, 1e-6)
		assert.InDelta(t, s.Normal.X, got.Normal.X, 1e-6)
		assert.InDelta(t, s.Normal.Y, got.Normal.Y, 1e-6)
	}
}

func TestReadBakedLengthMismatch(t *testing.T) {
	f := bakeFixture(t)
	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(64*sampleBytes), n)

	other, err := NewGrid(Bounds{Left: -2, Right: 2, Down: -2, Up: 2}, 4)
	require.NoError(t, err)
	_, err = ReadBaked(&buf, other, 0)
	assert.ErrorIs(t, err, ErrSampleMismatch)
}

func TestWriteCSV(t *testing.T) {
	f := bakeFixture(t)
	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 65, lines)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("cell,i,j,x,y,normal_x,normal_y,distance")))
}
