package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Particles     int
	Obstacles     int
	Boundary      string
	Tick          int32
	SimTime       float64
	Speed         int
	FPS           int32
	Paused        bool
	Collisions    int
	OutsideDomain int
	Penetrating   int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	// Title
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	// Scene
	rl.DrawText(
		fmt.Sprintf("Particles: %d | Obstacles: %d | Boundary: %s", data.Particles, data.Obstacles, data.Boundary),
		10, 35, 16, rl.LightGray,
	)

	// Simulation info
	rl.DrawText(
		fmt.Sprintf("Tick: %d | t=%.2fs | Speed: %dx | FPS: %d", data.Tick, data.SimTime, data.Speed, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	// Status
	statusText := "Running"
	statusColor := rl.Yellow
	if data.Paused {
		statusText = "PAUSED"
	}
	if data.OutsideDomain > 0 {
		statusText += fmt.Sprintf(" | %d outside field", data.OutsideDomain)
		statusColor = rl.Orange
	}
	if data.Penetrating > 0 {
		statusText += fmt.Sprintf(" | %d inside solids", data.Penetrating)
		statusColor = rl.Orange
	}
	rl.DrawText(statusText, 10, 75, 16, statusColor)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanelData holds performance metrics for display.
type PerfPanelData struct {
	PhaseTimes map[string]time.Duration
	Total      time.Duration
	TPS        float64
}

// PerfPanel renders the per-stage performance panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel with phases in the given order.
func (p *PerfPanel) Draw(data PerfPanelData, phases []string) {
	x := p.x
	y := p.y

	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Tick: %s | TPS: %.0f", data.Total.Round(time.Microsecond), data.TPS), x, y, 14, rl.Yellow)
	y += 16

	for _, name := range phases {
		avg := data.PhaseTimes[name]
		pct := float64(0)
		if data.Total > 0 {
			pct = float64(avg) / float64(data.Total) * 100
		}

		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
