package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/fluid/systems"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty slice", []float64{}, Distribution{}},
		{"single element", []float64{5.0}, Distribution{Mean: 5, P10: 5, P50: 5, P90: 5}},
		{
			"unsorted deciles",
			[]float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
			Distribution{Mean: 5.5, Std: 3.0277, P10: 1, P50: 5, P90: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			check := func(field string, got, want float64) {
				if math.Abs(got-want) > 0.001 {
					t.Errorf("%s = %v, want %v", field, got, want)
				}
			}
			check("mean", got.Mean, tt.want.Mean)
			check("std", got.Std, tt.want.Std)
			check("p10", got.P10, tt.want.P10)
			check("p50", got.P50, tt.want.P50)
			check("p90", got.P90, tt.want.P90)
		})
	}
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(0.1, 0.02)
	if c.WindowDurationTicks() != 5 {
		t.Fatalf("expected 5 ticks per window, got %d", c.WindowDurationTicks())
	}

	for i := 0; i < 5; i++ {
		c.RecordStep(systems.StepStats{
			Collisions:  2,
			Degenerate:  1,
			Penetrating: 3,
			Neighbors:   40,
			MeanDensity: float64(i),
			MaxSpeed:    float64(i),
		})
	}
	if !c.ShouldFlush(5) {
		t.Fatal("expected flush after one window")
	}

	stats := c.Flush(5, []float64{1, 2, 3, 4}, []float64{0, 1, 1, 2}, 3)
	if stats.Steps != 5 || stats.Collisions != 10 || stats.Degenerate != 5 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	if stats.Penetrating != 15 || stats.Escaped() != 15 {
		t.Errorf("expected 15 penetrating particle steps, got %d", stats.Penetrating)
	}
	if stats.Particles != 4 {
		t.Errorf("expected 4 particles, got %d", stats.Particles)
	}
	if math.Abs(stats.MeanDensity-2) > 1e-9 {
		t.Errorf("expected window mean density 2, got %v", stats.MeanDensity)
	}
	if math.Abs(stats.MeanNeighbors-10) > 1e-9 {
		t.Errorf("expected 10 neighbors per particle, got %v", stats.MeanNeighbors)
	}
	if stats.PeakSpeed != 4 {
		t.Errorf("expected peak speed 4, got %v", stats.PeakSpeed)
	}
	if math.Abs(stats.SimTimeSec-0.1) > 1e-9 {
		t.Errorf("expected sim time 0.1, got %v", stats.SimTimeSec)
	}

	// Counters reset for the next window
	if c.ShouldFlush(6) {
		t.Error("window should restart at the flush tick")
	}
	next := c.Flush(10, nil, nil, 0)
	if next.Steps != 0 || next.Collisions != 0 || next.WindowStartTick != 5 {
		t.Errorf("expected reset counters, got %+v", next)
	}
}
