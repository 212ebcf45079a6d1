package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is the simulation state shown under the overlay toggles.
type ControlsState struct {
	Boundary       string
	Baked          bool
	Paused         bool
	StepsPerUpdate int
}

// binding is a simulation key that is not an overlay toggle.
type binding struct {
	key, action string
	bakedOnly   bool
}

var simBindings = []binding{
	{key: "SPACE", action: "Pause"},
	{key: "N", action: "Step once"},
	{key: "R", action: "Respawn"},
	{key: "< >", action: "Steps per frame"},
	{key: "LMB", action: "Push fluid"},
	{key: "RMB", action: "Drag obstacle", bakedOnly: true},
}

var (
	mutedColor = rl.Color{R: 110, G: 110, B: 110, A: 255}
	keyColor   = rl.Color{R: 150, G: 150, B: 150, A: 255}
)

// ControlsPanel lists the fluid overlays as clickable toggles, followed by
// the run state and the simulation key bindings.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a hidden controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetVisible shows or hides the panel.
func (c *ControlsPanel) SetVisible(visible bool) {
	c.visible = visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Bounds returns the panel rectangle for hit testing.
func (c *ControlsPanel) Bounds(overlays *OverlayRegistry) rl.Rectangle {
	return rl.Rectangle{
		X:      float32(c.x),
		Y:      float32(c.y),
		Width:  float32(c.width),
		Height: float32(c.Height(overlays)),
	}
}

// Height returns the panel height in pixels: title, one row per overlay,
// a state row and one row per key binding.
func (c *ControlsPanel) Height(overlays *OverlayRegistry) int32 {
	t := c.renderer.Theme
	rows := 1 + len(overlays.All()) + 1 + 1 + len(simBindings)
	return int32(rows)*t.LineHeight + t.Padding*2 + 8
}

// Draw renders the panel. Clicking an overlay row toggles it in the
// registry; the toggled overlay is returned with ok set.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry, state ControlsState) (toggled OverlayID, ok bool) {
	if !c.visible {
		return "", false
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight
	r.DrawPanel(c.x, c.y, c.width, c.Height(overlays))

	x := c.x + padding
	y := c.y + padding
	inner := c.width - padding*2

	rl.DrawText("Overlays", x, y, 16, rl.White)
	y += lineHeight

	for _, desc := range overlays.All() {
		enabled := overlays.IsEnabled(desc.ID)
		rect := rl.Rectangle{X: float32(x), Y: float32(y), Width: 10, Height: 10}
		if gui.CheckBox(rect, "", enabled) != enabled {
			overlays.Toggle(desc.ID)
			toggled, ok = desc.ID, true
		}

		color := r.Theme.LabelColor
		if enabled {
			color = rl.White
		}
		if !overlayApplies(desc.ID, state) {
			color = mutedColor
		}
		rl.DrawText(overlayLabel(desc, state), x+16, y, r.Theme.FontSize, color)
		c.drawKey(x, y, inner, desc.KeyLabel)
		y += lineHeight
	}

	y += 4
	rl.DrawText(runState(state), x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	y += lineHeight + 4

	for _, b := range simBindings {
		color := r.Theme.LabelColor
		if b.bakedOnly && !state.Baked {
			color = mutedColor
		}
		rl.DrawText(b.action, x, y, r.Theme.FontSize, color)
		c.drawKey(x, y, inner, b.key)
		y += lineHeight
	}
	return toggled, ok
}

// drawKey right-aligns a key label within the row.
func (c *ControlsPanel) drawKey(x, y, width int32, label string) {
	if label == "" {
		return
	}
	text := fmt.Sprintf("[%s]", label)
	size := c.renderer.Theme.FontSize
	rl.DrawText(text, x+width-rl.MeasureText(text, size), y, size, keyColor)
}

// overlayApplies reports whether an overlay has anything to show for the
// current boundary. Obstacle boxes only exist behind a baked field.
func overlayApplies(id OverlayID, state ControlsState) bool {
	return id != OverlayObstacles || state.Baked
}

// overlayLabel names an overlay row, noting the boundary it samples.
func overlayLabel(desc OverlayDescriptor, state ControlsState) string {
	switch {
	case desc.ID == OverlayFieldHeatmap && state.Boundary != "":
		return fmt.Sprintf("%s (%s)", desc.Name, state.Boundary)
	case !overlayApplies(desc.ID, state):
		return desc.Name + " (baked only)"
	default:
		return desc.Name
	}
}

func runState(state ControlsState) string {
	run := "Running"
	if state.Paused {
		run = "Paused"
	}
	return fmt.Sprintf("%s | %d step(s)/frame", run, state.StepsPerUpdate)
}
