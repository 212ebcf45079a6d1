package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/systems"
)

// ParamsAction is a button press reported by the tuning panel.
type ParamsAction int

const (
	ActionNone    ParamsAction = iota
	ActionDefaults             // Restore configured parameters
	ActionRespawn              // Re-seed particles at their spawn layout
)

// SliderSpec binds a slider to one solver parameter.
type SliderSpec struct {
	Label    string
	Min, Max float32
	Format   string
	Field    func(p *systems.Params) *float64
}

// DefaultSliders are the live-tunable fluid constants.
var DefaultSliders = []SliderSpec{
	{Label: "Stiffness k", Min: 0, Max: 50, Format: "%.1f", Field: func(p *systems.Params) *float64 { return &p.K }},
	{Label: "Near stiffness", Min: 0, Max: 100, Format: "%.1f", Field: func(p *systems.Params) *float64 { return &p.KNear }},
	{Label: "Rest density", Min: 0.5, Max: 20, Format: "%.2f", Field: func(p *systems.Params) *float64 { return &p.RestDensity }},
	{Label: "Viscosity sigma", Min: 0, Max: 5, Format: "%.2f", Field: func(p *systems.Params) *float64 { return &p.Sigma }},
	{Label: "Viscosity beta", Min: 0, Max: 5, Format: "%.2f", Field: func(p *systems.Params) *float64 { return &p.Beta }},
	{Label: "Gravity", Min: -2, Max: 2, Format: "%.3f", Field: func(p *systems.Params) *float64 { return &p.Gravity.Y }},
	{Label: "Friction", Min: 0, Max: 1, Format: "%.3f", Field: func(p *systems.Params) *float64 { return &p.Friction }},
}

// ParamsPanel renders sliders for the solver parameters.
type ParamsPanel struct {
	renderer *Renderer
	sliders  []SliderSpec
	x, y     int32
	width    int32
}

// NewParamsPanel creates a tuning panel with the default sliders.
func NewParamsPanel(x, y, width int32) *ParamsPanel {
	return &ParamsPanel{
		renderer: NewRenderer(),
		sliders:  DefaultSliders,
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *ParamsPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Height returns the panel height in pixels.
func (p *ParamsPanel) Height() int32 {
	return p.renderer.Theme.Padding*2 + 24 + int32(len(p.sliders))*38 + 40
}

// Draw renders the sliders, writing changes into params. It reports whether
// any value changed and which button, if any, was pressed.
func (p *ParamsPanel) Draw(params *systems.Params) (changed bool, action ParamsAction) {
	r := p.renderer
	padding := r.Theme.Padding
	r.DrawPanel(p.x, p.y, p.width, p.Height())

	panelX := float32(p.x + padding)
	panelY := float32(p.y + padding)
	sliderW := float32(p.width - padding*2 - 60)

	rl.DrawText("Fluid Parameters", int32(panelX), int32(panelY), 16, rl.White)
	panelY += 24

	for _, s := range p.sliders {
		field := s.Field(params)
		rl.DrawText(s.Label, int32(panelX), int32(panelY), r.Theme.FontSize, r.Theme.LabelColor)
		panelY += 14

		value := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: sliderW, Height: 16},
			"", "",
			float32(*field), s.Min, s.Max,
		)
		rl.DrawText(fmt.Sprintf(s.Format, *field), int32(panelX+sliderW+6), int32(panelY+2), r.Theme.FontSize, r.Theme.ValueColor)
		if value != float32(*field) {
			*field = float64(value)
			changed = true
		}
		panelY += 24
	}

	panelY += 4
	if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 100, Height: 26}, "Defaults") {
		action = ActionDefaults
	}
	if gui.Button(rl.Rectangle{X: panelX + 110, Y: panelY, Width: 100, Height: 26}, "Respawn") {
		action = ActionRespawn
	}

	return changed, action
}
