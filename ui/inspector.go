package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/systems"
)

// InspectorData holds all the data needed to render the inspector panel.
type InspectorData struct {
	Particle  systems.Particle
	Density   float64
	Neighbors int

	// Boundary query at the particle position
	InDomain bool
	Distance float64
	Normal   r2.Vec
}

// Inspector renders the particle inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel for the given data.
func (ins *Inspector) Draw(data InspectorData) int32 {
	r := ins.renderer
	padding := r.Theme.Padding
	lines := int32(9)
	panelHeight := padding*2 + r.Theme.LineHeight*lines + 3*r.Theme.LineHeight

	r.DrawPanel(ins.x, ins.y, ins.width, panelHeight)

	x := ins.x + padding
	y := ins.y + padding
	width := ins.width - padding*2
	p := data.Particle

	rl.DrawText(fmt.Sprintf("Particle #%d", p.Index), x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4

	y = r.DrawSectionHeader(x, y, "State")
	y = r.DrawLabelValue(x, y, "Position", fmt.Sprintf("(%.3f, %.3f)", p.Pos.X, p.Pos.Y))
	y = r.DrawLabelValue(x, y, "Velocity", fmt.Sprintf("(%.3f, %.3f)", p.Vel.X, p.Vel.Y))
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.3f", r2.Norm(p.Vel)))
	y = r.DrawLabelValue(x, y, "Grid key", fmt.Sprintf("%d", p.GridKey))

	y = r.DrawSectionHeader(x, y, "Neighborhood")
	y = r.DrawLabelValue(x, y, "Neighbors", fmt.Sprintf("%d", data.Neighbors))
	y = r.DrawLabelValue(x, y, "Density", fmt.Sprintf("%.3f", data.Density))

	y = r.DrawSectionHeader(x, y, "Boundary")
	if !data.InDomain {
		y = r.DrawLabelValue(x, y, "Field", "outside domain")
		return y
	}
	y = r.DrawCenteredBar(x, y, "Distance", float32(data.Distance), 2, width)
	y = r.DrawLabelValue(x, y, "Normal", fmt.Sprintf("(%.2f, %.2f)", data.Normal.X, data.Normal.Y))

	return y
}
