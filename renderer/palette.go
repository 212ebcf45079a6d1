// Package renderer draws the fluid, its boundaries and the distance field.
package renderer

import (
	"image/color"
	"math"

	"github.com/pthm-cable/fluid/sdf"
)

var (
	slowColor  = color.RGBA{R: 40, G: 110, B: 210, A: 255}
	fastColor  = color.RGBA{R: 230, G: 245, B: 255, A: 255}
	solidColor = color.RGBA{R: 170, G: 70, B: 60}
	openColor  = color.RGBA{R: 40, G: 160, B: 120}
)

// SpeedColor blends from deep blue at rest to white at maxSpeed.
func SpeedColor(speed, maxSpeed float64) color.RGBA {
	t := 0.0
	if maxSpeed > 0 {
		t = math.Min(math.Max(speed/maxSpeed, 0), 1)
	}
	return lerpColor(slowColor, fastColor, t)
}

// DistanceColor maps a signed distance to a translucent heatmap color.
// Solid interiors are red, open space green, and both fade to clear as the
// magnitude approaches falloff.
func DistanceColor(d, falloff float64) color.RGBA {
	base := openColor
	if d < 0 {
		base = solidColor
	}
	t := 1.0
	if falloff > 0 {
		t = math.Min(math.Abs(d)/falloff, 1)
	}
	base.A = uint8((1 - t) * 160)
	return base
}

// FieldPixels samples field at every grid bucket center and returns a
// row-major image with the top row first. Buckets outside the field's domain
// are transparent.
func FieldPixels(field sdf.Field, grid sdf.Grid, falloff float64) []color.RGBA {
	pixels := make([]color.RGBA, grid.Len())
	for row := 0; row < grid.BucketsY; row++ {
		j := grid.BucketsY - 1 - row
		for i := 0; i < grid.BucketsX; i++ {
			tok := field.Index(grid.Center(i, j))
			if !tok.InDomain() {
				continue
			}
			d, err := field.Distance(tok)
			if err != nil {
				continue
			}
			pixels[row*grid.BucketsX+i] = DistanceColor(d, falloff)
		}
	}
	return pixels
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
