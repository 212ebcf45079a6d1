package ui

import (
	"fmt"

	"github.com/pthm-cable/fluid/telemetry"
)

func windowStats(data any) telemetry.WindowStats {
	s, _ := data.(telemetry.WindowStats)
	return s
}

// WindowStatsPanel is the descriptor for the last telemetry window.
var WindowStatsPanel = PanelDescriptor{
	ID:    "window_stats",
	Title: "Window Stats",
	Width: 260,
	Sections: []SectionDescriptor{
		{
			ID:    "window",
			Title: "Window",
			Fields: []FieldDescriptor{
				{ID: "end", Label: "End tick", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).WindowEndTick) }},
				{ID: "steps", Label: "Steps", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).Steps) }},
				{ID: "neighbors", Label: "Neighbors", Widget: WidgetText, Format: "%.1f",
					Getter: func(d any) float32 { return float32(windowStats(d).MeanNeighbors) }},
			},
		},
		{
			ID:    "density",
			Title: "Density",
			Fields: []FieldDescriptor{
				{ID: "density_mean", Label: "Mean", Widget: WidgetText, Format: "%.3f",
					Getter: func(d any) float32 { return float32(windowStats(d).MeanDensity) }},
				{ID: "density_pct", Label: "p10/50/90", Widget: WidgetText,
					TextGetter: func(d any) string {
						s := windowStats(d)
						return fmt.Sprintf("%.2f / %.2f / %.2f", s.DensityP10, s.DensityP50, s.DensityP90)
					}},
			},
		},
		{
			ID:    "motion",
			Title: "Motion",
			Fields: []FieldDescriptor{
				{ID: "speed_mean", Label: "Speed", Widget: WidgetText,
					TextGetter: func(d any) string {
						s := windowStats(d)
						return fmt.Sprintf("%.2f +/- %.2f", s.SpeedMean, s.SpeedStd)
					}},
				{ID: "speed_peak", Label: "Peak", Widget: WidgetText, Format: "%.2f",
					Getter: func(d any) float32 { return float32(windowStats(d).PeakSpeed) }},
				{ID: "energy", Label: "Energy", Widget: WidgetText, Format: "%.2f",
					Getter: func(d any) float32 { return float32(windowStats(d).KineticEnergy) }},
			},
		},
		{
			ID:    "boundary",
			Title: "Boundary",
			Fields: []FieldDescriptor{
				{ID: "collisions", Label: "Collisions", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).Collisions) }},
				{ID: "outside", Label: "Outside", Widget: WidgetText, Format: "%.0f",
					Getter:  func(d any) float32 { return float32(windowStats(d).OutsideDomain) },
					Visible: func(d any) bool { return windowStats(d).OutsideDomain > 0 }},
				{ID: "penetrating", Label: "Penetrating", Widget: WidgetText, Format: "%.0f",
					Getter:  func(d any) float32 { return float32(windowStats(d).Penetrating) },
					Visible: func(d any) bool { return windowStats(d).Penetrating > 0 }},
				{ID: "degenerate", Label: "Degenerate", Widget: WidgetText, Format: "%.0f",
					Getter:  func(d any) float32 { return float32(windowStats(d).Degenerate) },
					Visible: func(d any) bool { return windowStats(d).Degenerate > 0 }},
			},
		},
	},
}

// StatsPanel renders the last flushed telemetry window.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewStatsPanel creates a new stats panel.
func NewStatsPanel(x, y int32) *StatsPanel {
	return &StatsPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the panel.
func (s *StatsPanel) Draw(stats telemetry.WindowStats) int32 {
	return s.renderer.DrawDescribedPanel(s.x, s.y, WindowStatsPanel, stats)
}
