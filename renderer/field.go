package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/sdf"
)

// FieldRenderer renders a signed distance field as a translucent heatmap.
// The field is sampled once into a texture and stretched over its bounds.
type FieldRenderer struct {
	tex         rl.Texture2D
	grid        sdf.Grid
	falloff     float64
	initialized bool
}

// NewFieldRenderer creates a heatmap renderer. falloff is the distance at
// which the overlay becomes fully transparent.
func NewFieldRenderer(falloff float64) *FieldRenderer {
	return &FieldRenderer{falloff: falloff}
}

// Init allocates the texture (must be called after raylib window is created).
func (r *FieldRenderer) Init(grid sdf.Grid) {
	if r.initialized {
		return
	}
	r.grid = grid

	img := rl.GenImageColor(grid.BucketsX, grid.BucketsY, rl.Blank)
	r.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(r.tex, rl.FilterBilinear)
	rl.SetTextureWrap(r.tex, rl.WrapClamp)
	rl.UnloadImage(img)

	r.initialized = true
}

// Update resamples field into the texture.
func (r *FieldRenderer) Update(field sdf.Field, grid sdf.Grid) {
	if r.initialized && (grid.BucketsX != r.grid.BucketsX || grid.BucketsY != r.grid.BucketsY) {
		r.Unload()
	}
	if !r.initialized {
		r.Init(grid)
	}
	r.grid = grid
	rl.UpdateTexture(r.tex, FieldPixels(field, grid, r.falloff))
}

// Draw renders the heatmap layer.
func (r *FieldRenderer) Draw(cam *camera.Camera) {
	if !r.initialized {
		return
	}
	b := r.grid.Bounds
	srcRect := rl.Rectangle{X: 0, Y: 0, Width: float32(r.grid.BucketsX), Height: float32(r.grid.BucketsY)}
	dstRect := screenRect(cam, b.Left, b.Down, b.Right, b.Up)
	rl.DrawTexturePro(r.tex, srcRect, dstRect, rl.Vector2{}, 0, rl.White)
}

// Unload frees GPU resources.
func (r *FieldRenderer) Unload() {
	if !r.initialized {
		return
	}
	rl.UnloadTexture(r.tex)
	r.initialized = false
}
