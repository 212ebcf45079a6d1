package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/sdf"
)

var (
	rockColor    = rl.Color{R: 58, G: 62, B: 72, A: 255}
	arenaColor   = rl.Color{R: 120, G: 130, B: 150, A: 255}
	edgeFraction = float32(0.12)
)

// ObstacleRenderer renders solid boxes with lit top and shaded bottom edges.
type ObstacleRenderer struct{}

// NewObstacleRenderer creates a new obstacle renderer.
func NewObstacleRenderer() *ObstacleRenderer {
	return &ObstacleRenderer{}
}

// Draw renders each box in world space.
func (r *ObstacleRenderer) Draw(cam *camera.Camera, boxes []sdf.Box) {
	for _, b := range boxes {
		rect := screenRect(cam, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		rl.DrawRectangleRec(rect, rockColor)

		edge := rect.Height * edgeFraction
		if edge < 1 {
			edge = 1
		}
		if edge > 4 {
			edge = 4
		}

		highlight := rl.Color{R: rockColor.R + 40, G: rockColor.G + 40, B: rockColor.B + 45, A: 200}
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X, Y: rect.Y, Width: rect.Width, Height: edge}, highlight)

		shadow := rl.Color{
			R: uint8(float32(rockColor.R) * 0.6),
			G: uint8(float32(rockColor.G) * 0.6),
			B: uint8(float32(rockColor.B) * 0.6),
			A: 200,
		}
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X, Y: rect.Y + rect.Height - edge, Width: rect.Width, Height: edge}, shadow)
	}
}

// DrawArena outlines the analytic arena bounds.
func (r *ObstacleRenderer) DrawArena(cam *camera.Camera, b sdf.Bounds) {
	rect := screenRect(cam, b.Left, b.Down, b.Right, b.Up)
	rl.DrawRectangleLinesEx(rect, 2, arenaColor)
}

// screenRect converts a world-space box to a screen rectangle.
func screenRect(cam *camera.Camera, minX, minY, maxX, maxY float64) rl.Rectangle {
	x, y := cam.WorldToScreen(float32(minX), float32(maxY))
	s := cam.Scale()
	return rl.Rectangle{
		X:      x,
		Y:      y,
		Width:  float32(maxX-minX) * s,
		Height: float32(maxY-minY) * s,
	}
}
