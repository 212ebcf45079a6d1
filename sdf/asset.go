package sdf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r2"
)

// Baked assets are headerless little-endian float32 triples (nx, ny, d) in
// storage order. The grid geometry is not stored and must be supplied again
// on load.
const sampleBytes = 3 * 4

// WriteTo encodes the samples to w.
func (f *Baked) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var buf [sampleBytes]byte
	var n int64

	for _, s := range f.samples {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(s.Normal.X)))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(s.Normal.Y)))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(s.Distance)))
		m, err := bw.Write(buf[:])
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("writing sample: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing samples: %w", err)
	}
	return n, nil
}

// ReadBaked decodes an asset written by WriteTo for the given grid.
func ReadBaked(r io.Reader, grid Grid, edgeEpsilon float64) (*Baked, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	if len(data) != grid.Len()*sampleBytes {
		return nil, fmt.Errorf("%w: asset holds %d bytes, grid needs %d",
			ErrSampleMismatch, len(data), grid.Len()*sampleBytes)
	}

	samples := make([]Sample, grid.Len())
	for i := range samples {
		off := i * sampleBytes
		samples[i] = Sample{
			Normal: r2.Vec{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))),
			},
			Distance: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))),
		}
	}
	return NewBaked(grid, samples, edgeEpsilon)
}

// Save writes the asset to path.
func (f *Baked) Save(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	_, err = f.WriteTo(file)
	return err
}

// LoadBaked reads the asset at path.
func LoadBaked(path string, grid Grid, edgeEpsilon float64) (*Baked, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	return ReadBaked(file, grid, edgeEpsilon)
}

// SampleRow is the CSV form of one bucket, used for inspecting bakes.
type SampleRow struct {
	Cell     int     `csv:"cell"`
	I        int     `csv:"i"`
	J        int     `csv:"j"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	NormalX  float64 `csv:"normal_x"`
	NormalY  float64 `csv:"normal_y"`
	Distance float64 `csv:"distance"`
}

// Rows flattens the field into CSV rows with sample positions.
func (f *Baked) Rows() []SampleRow {
	g := f.grid
	rows := make([]SampleRow, 0, len(f.samples))
	for i := 0; i < g.BucketsX; i++ {
		for j := 0; j < g.BucketsY; j++ {
			cell := i*g.BucketsY + j
			c := g.Center(i, j)
			s := f.samples[cell]
			rows = append(rows, SampleRow{
				Cell:     cell,
				I:        i,
				J:        j,
				X:        c.X,
				Y:        c.Y,
				NormalX:  s.Normal.X,
				NormalY:  s.Normal.Y,
				Distance: s.Distance,
			})
		}
	}
	return rows
}

// WriteCSV dumps the field as CSV with a header row.
func (f *Baked) WriteCSV(w io.Writer) error {
	rows := f.Rows()
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
