package systems

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidGrid is returned for a non-positive cell or table size.
var ErrInvalidGrid = errors.New("systems: invalid spatial hash")

// SpatialHash files particle indices under a hashed integer cell coordinate.
// Distinct cells may share a bucket; callers re-filter by exact distance.
type SpatialHash struct {
	cellSize  float64
	tableSize int
	buckets   [][]int
}

// NewSpatialHash creates an empty hash. tableSize trades memory for fewer
// shared buckets.
func NewSpatialHash(cellSize float64, tableSize int) (*SpatialHash, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: cell size %g", ErrInvalidGrid, cellSize)
	}
	if tableSize <= 0 {
		return nil, fmt.Errorf("%w: table size %d", ErrInvalidGrid, tableSize)
	}
	return &SpatialHash{
		cellSize:  cellSize,
		tableSize: tableSize,
		buckets:   make([][]int, tableSize),
	}, nil
}

// CellSize returns the edge length of one cell.
func (h *SpatialHash) CellSize() float64 {
	return h.cellSize
}

// TableSize returns the number of buckets.
func (h *SpatialHash) TableSize() int {
	return h.tableSize
}

// Cell returns the integer cell coordinate containing pos.
func (h *SpatialHash) Cell(pos r2.Vec) (x, y int32) {
	x = int32(int64(math.Floor(pos.X / h.cellSize)))
	y = int32(int64(math.Floor(pos.Y / h.cellSize)))
	return x, y
}

// Key returns the bucket for pos.
func (h *SpatialHash) Key(pos r2.Vec) int {
	return h.cellKey(h.Cell(pos))
}

// cellKey packs the low 16 bits of each coordinate and reduces the result
// into [0, tableSize).
func (h *SpatialHash) cellKey(x, y int32) int {
	packed := (x&0xFFFF)<<16 | (y & 0xFFFF)
	k := int(packed) % h.tableSize
	if k < 0 {
		k += h.tableSize
	}
	return k
}

// Bucket returns the indices filed under key. Callers must not modify it.
func (h *SpatialHash) Bucket(key int) []int {
	if key < 0 || key >= h.tableSize {
		return nil
	}
	return h.buckets[key]
}

// Relocate files p under the bucket of its current position, moving it out
// of its previous bucket. It is a no-op when the bucket is unchanged.
func (h *SpatialHash) Relocate(p *Particle) {
	key := h.Key(p.Pos)
	if key == p.GridKey {
		return
	}

	h.buckets[key] = append(h.buckets[key], p.Index)
	if p.GridKey != NoGridKey {
		h.remove(p.GridKey, p.Index)
	}
	p.GridKey = key
}

func (h *SpatialHash) remove(key, index int) {
	b := h.buckets[key]
	for i, v := range b {
		if v == index {
			last := len(b) - 1
			b[i] = b[last]
			h.buckets[key] = b[:last]
			return
		}
	}
}

// Reset empties every bucket and files all particles from scratch.
func (h *SpatialHash) Reset(ps []Particle) {
	for i := range h.buckets {
		h.buckets[i] = h.buckets[i][:0]
	}
	for i := range ps {
		ps[i].GridKey = NoGridKey
		h.Relocate(&ps[i])
	}
}

// QueryInto appends the contents of the 3x3 block of cells around pos to dst
// and returns the extended slice. Cells are visited column by column from the
// lower left; a bucket reached twice through a key collision is read once.
func (h *SpatialHash) QueryInto(dst []int, pos r2.Vec) []int {
	cx, cy := h.Cell(pos)

	var seen [9]int
	n := 0
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			k := h.cellKey(cx+dx, cy+dy)
			if slices.Contains(seen[:n], k) {
				continue
			}
			seen[n] = k
			n++
			dst = append(dst, h.buckets[k]...)
		}
	}
	return dst
}
