package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/systems"
)

// ParticleRenderer renders fluid particles as speed-tinted discs.
type ParticleRenderer struct {
	// Radius of each disc in world units
	Radius float32

	// Speed at which particles reach the brightest tint
	MaxSpeed float64

	// Draw a short streak from the previous position
	Trails bool
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer(radius float32, maxSpeed float64) *ParticleRenderer {
	return &ParticleRenderer{
		Radius:   radius,
		MaxSpeed: maxSpeed,
	}
}

// Draw renders all particles visible through cam.
func (r *ParticleRenderer) Draw(cam *camera.Camera, particles []systems.Particle) {
	radius := r.Radius * cam.Scale()
	if radius < 1 {
		radius = 1
	}

	for i := range particles {
		p := &particles[i]
		x, y := float32(p.Pos.X), float32(p.Pos.Y)
		if !cam.IsVisible(x, y, r.Radius) {
			continue
		}

		color := SpeedColor(r2.Norm(p.Vel), r.MaxSpeed)
		sx, sy := cam.WorldToScreen(x, y)

		if r.Trails {
			px, py := cam.WorldToScreen(float32(p.PrevPos.X), float32(p.PrevPos.Y))
			trail := color
			trail.A = 90
			rl.DrawLineEx(rl.Vector2{X: px, Y: py}, rl.Vector2{X: sx, Y: sy}, radius, trail)
		}

		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, color)
	}
}
