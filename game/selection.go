package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/ui"
)

// findParticleAtMouse returns the index of the particle nearest the cursor
// within one hash cell, or -1 if none is close enough.
func (g *Game) findParticleAtMouse() int {
	mouse := rl.GetMousePosition()
	wx, wy := g.camera.ScreenToWorld(mouse.X, mouse.Y)
	cursor := r2.Vec{X: float64(wx), Y: float64(wy)}

	solver := g.runner.Solver()
	particles := solver.Particles()
	g.queryBuf = solver.Grid().QueryInto(g.queryBuf[:0], cursor)

	// Minimum pick distance of a few screen pixels so small particles stay clickable
	maxDist := solver.Grid().CellSize()
	if minPick := float64(6 / g.camera.Scale()); maxDist < minPick {
		maxDist = minPick
	}

	best := -1
	bestDist := maxDist * maxDist
	for _, i := range g.queryBuf {
		d := particles[i].Pos.Sub(cursor)
		if dist := r2.Norm2(d); dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}

// inspect builds the inspector data for particle i.
func (g *Game) inspect(i int) ui.InspectorData {
	solver := g.runner.Solver()
	p := solver.Particles()[i]
	data := ui.InspectorData{
		Particle:  p,
		Density:   solver.Density(i),
		Neighbors: len(solver.Neighbors(i)),
	}

	field := g.runner.Field()
	tok := field.Index(p.Pos)
	data.InDomain = tok.InDomain()
	if !data.InDomain {
		return data
	}
	if d, err := field.Distance(tok); err == nil {
		data.Distance = d
	}
	if n, err := field.Normal(tok); err == nil {
		data.Normal = n
	}
	return data
}
